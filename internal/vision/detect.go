package vision

import (
	"fmt"
	"image"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// NumRankClasses is the number of card rank classes the model predicts:
// ace, two through ten, jack, queen, king.
const NumRankClasses = 13

const (
	detInputW = 640
	detInputH = 640
	// YOLO head: 8400 candidate boxes, each with 4 box coords followed by
	// one score per rank class.
	detCandidates = 8400
	detChannels   = 4 + NumRankClasses
)

// Detector runs card detection on table frames using ONNX Runtime.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	threshold    float32
	nmsThreshold float32
	inputW       int
	inputH       int
}

// NewDetector loads the card detection ONNX model.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewDetector(modelPath string, threshold, nmsThreshold float32, opts *ort.SessionOptions) (*Detector, error) {
	inputShape := ort.NewShape(1, 3, int64(detInputH), int64(detInputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(detChannels), int64(detCandidates))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		threshold:    threshold,
		nmsThreshold: nmsThreshold,
		inputW:       detInputW,
		inputH:       detInputH,
	}, nil
}

// Detect runs card detection on a preprocessed image.
// imgData should be CHW format [3, inputH, inputW], normalized to [0,1].
// origW/origH are the original image dimensions for coordinate scaling.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]Detection, error) {
	inputSlice := d.inputTensor.GetData()
	copy(inputSlice, imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	detections := d.parseDetections(origW, origH)
	detections = nms(detections, float64(d.nmsThreshold))

	return detections, nil
}

// parseDetections decodes the transposed YOLO output [channels, candidates].
// Box coordinates are center-x, center-y, width, height in input pixels.
func (d *Detector) parseDetections(origW, origH int) []Detection {
	out := d.outputTensor.GetData()

	scaleW := float64(origW) / float64(d.inputW)
	scaleH := float64(origH) / float64(d.inputH)

	var detections []Detection
	for i := 0; i < detCandidates; i++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < NumRankClasses; c++ {
			score := out[(4+c)*detCandidates+i]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestScore < d.threshold {
			continue
		}

		cx := float64(out[0*detCandidates+i])
		cy := float64(out[1*detCandidates+i])
		w := float64(out[2*detCandidates+i])
		h := float64(out[3*detCandidates+i])

		box := Box{
			X1: (cx - w/2) * scaleW,
			Y1: (cy - h/2) * scaleH,
			X2: (cx + w/2) * scaleW,
			Y2: (cy + h/2) * scaleH,
		}
		box.X1 = clampF(box.X1, 0, float64(origW))
		box.Y1 = clampF(box.Y1, 0, float64(origH))
		box.X2 = clampF(box.X2, 0, float64(origW))
		box.Y2 = clampF(box.Y2, 0, float64(origH))

		detections = append(detections, Detection{
			Box:        box,
			Label:      bestClass,
			Confidence: float64(bestScore),
		})
	}

	return detections
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
}

// nms performs Non-Maximum Suppression on detections.
func nms(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if !keep[j] {
				continue
			}
			if IoU(detections[i].Box, detections[j].Box) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []Detection
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}
	return result
}

// PreprocessFrame converts an image to the detector's CHW float32 input,
// scaled to [0,1].
func PreprocessFrame(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			// Convert from 16-bit to 8-bit
			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			// CHW layout: [C][H][W]
			idx := y*w + x
			data[0*h*w+idx] = rf / 255.0
			data[1*h*w+idx] = gf / 255.0
			data[2*h*w+idx] = bf / 255.0
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
