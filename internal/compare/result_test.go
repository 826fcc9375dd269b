package compare

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDiffResult_MarshalJSON(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		data, err := json.Marshal(failed(ErrorKindInput, errors.New("failed to load baseline image")))
		if err != nil {
			t.Fatal(err)
		}

		want := `{"has_differences":null,"error":"failed to load baseline image","error_kind":"input"}`
		if diff := cmp.Diff(want, string(data)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Success", func(t *testing.T) {
		hasDifferences := false
		data, err := json.Marshal(&DiffResult{CompositePath: "out/diff.png", HasDifferences: &hasDifferences})
		if err != nil {
			t.Fatal(err)
		}

		want := `{"diff_percentage":0,"diff_pixel_count":0,"diff_region_count":0,"composite_path":"out/diff.png","has_differences":false}`
		if diff := cmp.Diff(want, string(data)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		hasDifferences := true
		in := &DiffResult{
			DiffPercentage:  1.5,
			DiffPixelCount:  150,
			DiffRegionCount: 1,
			CompositePath:   "diff.png",
			HasDifferences:  &hasDifferences,
			Regions:         []Region{{X: 1, Y: 2, Width: 15, Height: 10, Area: 150}},
		}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}

		var out DiffResult
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(in, &out); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NotFoundRoundTrip", func(t *testing.T) {
		data, err := json.Marshal(notFound("firefox"))
		if err != nil {
			t.Fatal(err)
		}

		var out DiffResult
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if !errors.Is(out.Err, ErrNoMatch) || out.Kind != ErrorKindNotFound {
			t.Errorf("expected a not found result, got %+v", out)
		}
		if diff := cmp.Diff(notFound("firefox"), &out, cmpopts.IgnoreFields(DiffResult{}, "Err")); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestContextResult_MarshalJSON(t *testing.T) {
	t.Run("Comparisons", func(t *testing.T) {
		result := &ContextResult{
			ReferenceContext: "chrome",
			Comparisons: map[string]map[string]*DiffResult{
				"B.png": {"firefox": notFound("firefox")},
			},
		}
		data, err := json.Marshal(result)
		if err != nil {
			t.Fatal(err)
		}

		want := `{"reference_context":"chrome","comparisons":{"B.png":{"firefox":{"has_differences":null,"error":"No matching screenshot found for firefox","error_kind":"not_found"}}}}`
		if diff := cmp.Diff(want, string(data)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Error", func(t *testing.T) {
		data, err := json.Marshal(&ContextResult{Err: ErrNoContexts})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(`{"error":"no screenshot directories provided"}`, string(data)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestBatchResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(&BatchResult{Err: ErrNoScreenshots})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`{"error":"no screenshots provided"}`, string(data)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	data, err = json.Marshal(&BatchResult{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(`{}`, string(data)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
