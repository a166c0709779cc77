package measure

import (
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/mustfahassan/pd-calculator/internal/detector"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrIncompleteResult is returned when a success body lacks pd_mm or confidence.
var ErrIncompleteResult = errors.New("success result missing pd_mm or confidence")

// Request is the /calculate_pd body: every landmark keyed by its id.
type Request struct {
	Landmarks map[int]detector.Point3D `json:"landmarks"`
}

// NewRequest keys an ordered landmark set by id.
func NewRequest(points []detector.Point3D) Request {
	return Request{Landmarks: detector.ByID(points)}
}

// EncodeRequest writes a request body.
func EncodeRequest(w io.Writer, req Request) error {
	return json.NewEncoder(w).Encode(req)
}

// DecodeRequest reads a request body.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	err := json.NewDecoder(r).Decode(&req)
	return req, err
}

// EncodeResult writes a response body.
func EncodeResult(w io.Writer, res Result) error {
	return json.NewEncoder(w).Encode(res)
}

// DecodeResult reads a response body. A success must carry both pd_mm and
// confidence; a zero value is only accepted when it was actually sent.
func DecodeResult(r io.Reader) (Result, error) {
	var body struct {
		PDMM       *float64 `json:"pd_mm"`
		Confidence *float64 `json:"confidence"`
		Status     Status   `json:"status"`
		Message    string   `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return Result{}, err
	}

	res := Result{Status: body.Status, Message: body.Message}
	if body.Status == StatusSuccess && (body.PDMM == nil || body.Confidence == nil) {
		return res, ErrIncompleteResult
	}
	if body.PDMM != nil {
		res.PDMM = *body.PDMM
	}
	if body.Confidence != nil {
		res.Confidence = *body.Confidence
	}
	return res, nil
}
