package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// EnsureRuntime points the onnxruntime bindings at a shared library and
// initializes the environment. Safe to call more than once; the environment
// is only initialized on the first call. An empty libraryPath triggers
// discovery via system locations and the project-relative onnxruntime/lib
// directory.
func EnsureRuntime(libraryPath string) error {
	if onnxrt.IsInitialized() {
		return nil
	}

	path := libraryPath
	if path == "" {
		var err error
		path, err = discoverLibrary()
		if err != nil {
			return fmt.Errorf("failed to locate ONNX Runtime library: %w", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("ONNX Runtime library not found at %s: %w", path, err)
	}
	onnxrt.SetSharedLibraryPath(path)

	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// discoverLibrary checks common system locations, then the project-relative
// onnxruntime/lib directory.
func discoverLibrary() (string, error) {
	if p := systemLibraryPath(); p != "" {
		return p, nil
	}

	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	return projectLibraryPath(root)
}

func systemLibraryPath() string {
	systemPaths := []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
	for _, p := range systemPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	root := cwd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", errors.New("could not find project root")
		}
		root = parent
	}
}

func projectLibraryPath(root string) (string, error) {
	libName, err := libraryName()
	if err != nil {
		return "", err
	}
	libPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if _, err := os.Stat(libPath); err != nil {
		return "", fmt.Errorf("ONNX Runtime library not found at %s", libPath)
	}
	return libPath, nil
}

func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}
