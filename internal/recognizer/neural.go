package recognizer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"

	"github.com/MeKo-Tech/readout/internal/mempool"
	"github.com/MeKo-Tech/readout/internal/onnx"
	"github.com/MeKo-Tech/readout/internal/preprocess"
)

// minInputHeight is the smallest crop height the recognition model accepts;
// smaller crops are upscaled by an integer factor first.
const minInputHeight = 48

// NeuralConfig holds configuration for the neural text recognizer.
type NeuralConfig struct {
	ModelPath   string // path to the ONNX recognition model
	DictPath    string // path to the character dictionary
	LibraryPath string // optional ONNX Runtime shared library override
	NumThreads  int    // intra-op CPU threads (0 for runtime default)
}

// Neural wraps a single ONNX recognition session. The session holds no
// mutable state between calls, so one Neural is shared read-only by every
// worker; Close is the only writer.
type Neural struct {
	config     NeuralConfig
	session    *onnxrt.DynamicAdvancedSession
	inputInfo  onnxrt.InputOutputInfo
	outputInfo onnxrt.InputOutputInfo
	charset    *Charset
	mu         sync.RWMutex
}

// NewNeural loads the model and dictionary and creates the shared session.
func NewNeural(config NeuralConfig) (*Neural, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path cannot be empty")
	}
	if config.DictPath == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	if _, err := os.Stat(config.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", config.ModelPath)
	}
	if _, err := os.Stat(config.DictPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("dictionary file not found: %s", config.DictPath)
	}

	if err := onnx.EnsureRuntime(config.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	inputInfo := inputs[0]
	outputInfo := outputs[0]
	if len(inputInfo.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputInfo.Dimensions))
	}

	charset, err := LoadCharset(config.DictPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("dictionary loaded", "path", config.DictPath, "charset_size", charset.Size())

	sessionOptions, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{inputInfo.Name},
		[]string{outputInfo.Name},
		sessionOptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Neural{
		config:     config,
		session:    session,
		inputInfo:  inputInfo,
		outputInfo: outputInfo,
		charset:    charset,
	}, nil
}

// Close releases the session.
func (n *Neural) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		if err := n.session.Destroy(); err != nil {
			slog.Warn("failed to destroy session", "error", err)
		}
		n.session = nil
	}
	return nil
}

// Recognize runs the model over the crop. In gray mode the crop is reduced
// to luma and promoted back to three channels, which strips color casts
// that confuse the model on tinted displays. Empty decoded text yields no
// candidate.
func (n *Neural) Recognize(crop image.Image, gray bool) (Candidate, bool, error) {
	variant := NeuralRGB
	input := crop
	if gray {
		variant = NeuralGray
		input = grayToRGB(crop)
	}

	prepared := prepareNeuralInput(input)
	pb := prepared.Bounds()
	slog.Debug("neural input prepared",
		"engine", variant.String(),
		"width", pb.Dx(), "height", pb.Dy(),
		"orig_width", crop.Bounds().Dx(), "orig_height", crop.Bounds().Dy())

	// Preview captures exactly what the model receives.
	preview, err := preprocess.EncodePNG(prepared)
	if err != nil {
		return Candidate{}, false, err
	}

	text, confidence, err := n.predict(prepared)
	if err != nil {
		return Candidate{}, false, err
	}
	slog.Debug("neural result", "engine", variant.String(), "text", text, "confidence", confidence)

	if text == "" {
		return Candidate{}, false, nil
	}

	return Candidate{
		Engine:     variant.String(),
		Text:       text,
		Confidence: confidence,
		Preview:    preview,
	}, true, nil
}

func (n *Neural) predict(img image.Image) (string, float64, error) {
	n.mu.RLock()
	session := n.session
	n.mu.RUnlock()
	if session == nil {
		return "", 0, errors.New("neural session is closed")
	}

	data, w, h, buf := normalizeNCHW(img)
	defer mempool.PutFloat32(buf)

	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return "", 0, err
	}

	inputTensor, err := onnxrt.NewTensor(onnxrt.NewShape(tensor.Shape...), tensor.Data)
	if err != nil {
		return "", 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := session.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return "", 0, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	outTensor := outputs[0]
	floatTensor, ok := outTensor.(*onnxrt.Tensor[float32])
	if !ok {
		return "", 0, fmt.Errorf("expected float32 tensor, got %T", outTensor)
	}

	return n.decode(floatTensor.GetData(), outTensor.GetShape())
}

func (n *Neural) decode(logits []float32, shape []int64) (string, float64, error) {
	classesGuess := n.charset.Size() + 1
	classesFirst := determineClassesFirst(shape, classesGuess)
	// PaddleOCR CTC uses blank=0
	decoded := DecodeCTCGreedy(logits, shape, 0, classesFirst)
	if len(decoded) == 0 {
		return "", 0, errors.New("empty decoded output")
	}
	seq := decoded[0]

	runes := make([]rune, 0, len(seq.Collapsed))
	for _, idx := range seq.Collapsed {
		// index 0 is the blank; dictionary tokens start at 1
		tok := n.charset.LookupToken(idx - 1)
		if tok == "" {
			continue
		}
		runes = append(runes, []rune(tok)...)
	}
	return string(runes), SequenceConfidence(seq.CollapsedProb), nil
}

// prepareNeuralInput upscales the crop so its height reaches the model's
// minimum. The scale factor uses ceiling division so the result is never
// under-sized; crops already tall enough pass through untouched.
func prepareNeuralInput(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if h <= 0 || h >= minInputHeight {
		return img
	}
	scale := (minInputHeight + h - 1) / h
	return imaging.Resize(img, w*scale, h*scale, imaging.Lanczos)
}

// grayToRGB reduces to luma and replicates the channel, since the model
// expects three channels regardless of color mode.
func grayToRGB(img image.Image) image.Image {
	gray := preprocess.RawGray(img)
	b := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		srcOff := y * gray.Stride
		dstOff := y * out.Stride
		for x := range b.Dx() {
			v := gray.Pix[srcOff+x]
			p := dstOff + x*4
			out.Pix[p] = v
			out.Pix[p+1] = v
			out.Pix[p+2] = v
			out.Pix[p+3] = 255
		}
	}
	return out
}

// normalizeNCHW converts an image to a float32 NCHW tensor in [0,1] using a
// pooled buffer. The caller returns buf via mempool.PutFloat32.
func normalizeNCHW(img image.Image) (data []float32, w, h int, buf []float32) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h = b.Dx(), b.Dy()

	buf = mempool.GetFloat32(3 * w * h)
	data = buf[:3*w*h]
	plane := w * h
	for y := range h {
		off := y * nrgba.Stride
		for x := range w {
			p := off + x*4
			idx := y*w + x
			data[idx] = float32(nrgba.Pix[p]) / 255.0
			data[plane+idx] = float32(nrgba.Pix[p+1]) / 255.0
			data[2*plane+idx] = float32(nrgba.Pix[p+2]) / 255.0
		}
	}
	return data, w, h, buf
}
