package compare

import (
	"encoding/json"
	"errors"

	diffimage "visual-regression/internal/diff/image"
)

var (
	// ErrNoMatch marks a screenshot that has no same-named counterpart in a
	// context.
	ErrNoMatch = errors.New("no matching screenshot found")

	ErrNoScreenshots = errors.New("no screenshots provided")
	ErrNoContexts    = errors.New("no screenshot directories provided")
)

type ErrorKind string

const (
	// ErrorKindInput covers missing or undecodable inputs and composite
	// write failures.
	ErrorKindInput    ErrorKind = "input"
	ErrorKindNotFound ErrorKind = "not_found"
	ErrorKindCanceled ErrorKind = "canceled"
)

type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Area   int `json:"area"`
}

func newRegions(regions []diffimage.Region) []Region {
	if len(regions) == 0 {
		return nil
	}
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, Region{
			X:      r.Bounds.Min.X,
			Y:      r.Bounds.Min.Y,
			Width:  r.Bounds.Dx(),
			Height: r.Bounds.Dy(),
			Area:   r.Area,
		})
	}
	return out
}

// DiffResult is the outcome of one image pair comparison. When Err is set
// the numeric fields are meaningless and HasDifferences is nil.
type DiffResult struct {
	DiffPercentage  float64
	DiffPixelCount  int
	DiffRegionCount int
	CompositePath   string
	HasDifferences  *bool
	Regions         []Region

	Kind ErrorKind
	Err  error
}

func failed(kind ErrorKind, err error) *DiffResult {
	return &DiffResult{
		Kind: kind,
		Err:  err,
	}
}

func (r *DiffResult) Failed() bool {
	return r.Err != nil
}

// Differs reports whether the comparison succeeded and found differences.
func (r *DiffResult) Differs() bool {
	return r.Err == nil && r.HasDifferences != nil && *r.HasDifferences
}

type diffResultJSON struct {
	DiffPercentage  *float64  `json:"diff_percentage,omitempty"`
	DiffPixelCount  *int      `json:"diff_pixel_count,omitempty"`
	DiffRegionCount *int      `json:"diff_region_count,omitempty"`
	CompositePath   string    `json:"composite_path,omitempty"`
	HasDifferences  *bool     `json:"has_differences"`
	Regions         []Region  `json:"regions,omitempty"`
	Error           string    `json:"error,omitempty"`
	ErrorKind       ErrorKind `json:"error_kind,omitempty"`
}

func (r *DiffResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(diffResultJSON{
			Error:     r.Err.Error(),
			ErrorKind: r.Kind,
		})
	}

	return json.Marshal(diffResultJSON{
		DiffPercentage:  &r.DiffPercentage,
		DiffPixelCount:  &r.DiffPixelCount,
		DiffRegionCount: &r.DiffRegionCount,
		CompositePath:   r.CompositePath,
		HasDifferences:  r.HasDifferences,
		Regions:         r.Regions,
	})
}

func (r *DiffResult) UnmarshalJSON(data []byte) error {
	var v diffResultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*r = DiffResult{}
	if v.Error != "" {
		r.Kind = v.ErrorKind
		if v.ErrorKind == ErrorKindNotFound {
			r.Err = &matchError{message: v.Error}
		} else {
			r.Err = errors.New(v.Error)
		}
		return nil
	}

	if v.DiffPercentage != nil {
		r.DiffPercentage = *v.DiffPercentage
	}
	if v.DiffPixelCount != nil {
		r.DiffPixelCount = *v.DiffPixelCount
	}
	if v.DiffRegionCount != nil {
		r.DiffRegionCount = *v.DiffRegionCount
	}
	r.CompositePath = v.CompositePath
	r.HasDifferences = v.HasDifferences
	r.Regions = v.Regions
	return nil
}

type matchError struct {
	message string
}

func (e *matchError) Error() string {
	return e.message
}

func (e *matchError) Unwrap() error {
	return ErrNoMatch
}

func notFound(contextName string) *DiffResult {
	return failed(ErrorKindNotFound, &matchError{message: "No matching screenshot found for " + contextName})
}

// BatchResult maps each compared screenshot's basename to its result. Err is
// set instead when no comparison could be attempted.
type BatchResult struct {
	Results map[string]*DiffResult
	Err     error
}

func (b *BatchResult) MarshalJSON() ([]byte, error) {
	if b.Err != nil {
		return json.Marshal(map[string]string{"error": b.Err.Error()})
	}
	if b.Results == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.Results)
}

type ContextResult struct {
	ReferenceContext string
	// Comparisons is keyed by screenshot basename, then by context name.
	Comparisons map[string]map[string]*DiffResult
	Err         error
}

func (c *ContextResult) MarshalJSON() ([]byte, error) {
	if c.Err != nil {
		return json.Marshal(map[string]string{"error": c.Err.Error()})
	}
	comparisons := c.Comparisons
	if comparisons == nil {
		comparisons = map[string]map[string]*DiffResult{}
	}
	return json.Marshal(struct {
		ReferenceContext string                            `json:"reference_context"`
		Comparisons      map[string]map[string]*DiffResult `json:"comparisons"`
	}{
		ReferenceContext: c.ReferenceContext,
		Comparisons:      comparisons,
	})
}

// Results flattens every per-pair result, for callers that only need to
// know whether anything differed or failed.
func (c *ContextResult) Results() []*DiffResult {
	var results []*DiffResult
	for _, byContext := range c.Comparisons {
		for _, r := range byContext {
			results = append(results, r)
		}
	}
	return results
}
