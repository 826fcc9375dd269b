package compare

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCrossContextComparator_CompareAcrossContexts(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}

	t.Run("Completeness", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "chrome", "A.png"), createTestImage(20, 20, white))
		writePNG(t, filepath.Join(dir, "chrome", "B.png"), createTestImage(20, 20, white))
		writePNG(t, filepath.Join(dir, "firefox", "nested", "A.png"), createTestImage(20, 20, white))
		out := filepath.Join(dir, "out")

		contexts := Contexts{
			{Name: "chrome", Dir: filepath.Join(dir, "chrome")},
			{Name: "firefox", Dir: filepath.Join(dir, "firefox")},
		}
		result := NewCrossContextComparator(newTestPairDiffer(t), 2, nil).CompareAcrossContexts(context.Background(), contexts, out, "")
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.ReferenceContext != "chrome" {
			t.Errorf("expected chrome as reference, got %s", result.ReferenceContext)
		}
		if diff := cmp.Diff([]string{"A.png", "B.png"}, keysOf(result.Comparisons)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		a := result.Comparisons["A.png"]["firefox"]
		if a == nil || a.Failed() || a.Differs() {
			t.Errorf("expected a clean comparison for A.png, got %+v", a)
		}
		if !exists(filepath.Join(out, "diff_chrome_firefox_A.png")) {
			t.Error("missing composite for A.png")
		}

		b := result.Comparisons["B.png"]["firefox"]
		if b == nil || b.Kind != ErrorKindNotFound || !errors.Is(b.Err, ErrNoMatch) {
			t.Errorf("expected not found for B.png, got %+v", b)
		}
		if b != nil && b.Err.Error() != "No matching screenshot found for firefox" {
			t.Errorf("unexpected message: %s", b.Err)
		}
		if _, ok := result.Comparisons["A.png"]["chrome"]; ok {
			t.Error("the reference context must not be compared with itself")
		}
	})

	t.Run("ReferenceSelection", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "one", "only-one.png"), createTestImage(4, 4, white))
		writePNG(t, filepath.Join(dir, "two", "only-two.png"), createTestImage(4, 4, white))
		contexts := Contexts{
			{Name: "one", Dir: filepath.Join(dir, "one")},
			{Name: "two", Dir: filepath.Join(dir, "two")},
		}
		comparator := NewCrossContextComparator(&countingPair{}, 1, nil)

		for _, tt := range []struct {
			reference string
			want      string
			basename  string
		}{
			{"two", "two", "only-two.png"},
			{"unknown", "one", "only-one.png"},
			{"", "one", "only-one.png"},
		} {
			result := comparator.CompareAcrossContexts(context.Background(), contexts, filepath.Join(dir, "out"), tt.reference)
			if result.ReferenceContext != tt.want {
				t.Errorf("reference %q: expected %s, got %s", tt.reference, tt.want, result.ReferenceContext)
			}
			if diff := cmp.Diff([]string{tt.basename}, keysOf(result.Comparisons)); diff != "" {
				t.Errorf("reference %q (-want +got):\n%s", tt.reference, diff)
			}
		}
	})

	t.Run("Discovery", func(t *testing.T) {
		dir := t.TempDir()
		ref := filepath.Join(dir, "ref")
		for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.PNG", "e.gif", "notes.txt"} {
			if err := os.MkdirAll(ref, 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(ref, name), nil, 0644); err != nil {
				t.Fatal(err)
			}
		}

		result := NewCrossContextComparator(&countingPair{}, 1, nil).CompareAcrossContexts(context.Background(), Contexts{{Name: "ref", Dir: ref}}, dir, "")
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if diff := cmp.Diff([]string{"a.png", "b.jpg", "c.jpeg"}, keysOf(result.Comparisons)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("FirstMatchWins", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "ref", "page.png"), createTestImage(4, 4, white))
		first := writePNG(t, filepath.Join(dir, "other", "a", "page.png"), createTestImage(4, 4, white))
		writePNG(t, filepath.Join(dir, "other", "b", "page.png"), createTestImage(4, 4, white))

		recorder := &recordingPair{}
		contexts := Contexts{
			{Name: "ref", Dir: filepath.Join(dir, "ref")},
			{Name: "other", Dir: filepath.Join(dir, "other")},
		}
		NewCrossContextComparator(recorder, 1, nil).CompareAcrossContexts(context.Background(), contexts, dir, "")
		if diff := cmp.Diff([]string{first}, recorder.targets); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		result := NewCrossContextComparator(&countingPair{}, 1, nil).CompareAcrossContexts(context.Background(), nil, t.TempDir(), "")
		if !errors.Is(result.Err, ErrNoContexts) {
			t.Errorf("expected ErrNoContexts, got %v", result.Err)
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		dir := t.TempDir()
		contexts := Contexts{{Name: "x", Dir: dir}, {Name: "x", Dir: dir}}
		result := NewCrossContextComparator(&countingPair{}, 1, nil).CompareAcrossContexts(context.Background(), contexts, dir, "")
		if result.Err == nil {
			t.Error("expected a top-level error")
		}
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		dir := t.TempDir()
		writePNG(t, filepath.Join(dir, "ref", "A.png"), createTestImage(20, 20, white))
		writePNG(t, filepath.Join(dir, "other", "A.png"), createTestImage(20, 20, white))
		contexts := Contexts{
			{Name: "ref", Dir: filepath.Join(dir, "ref")},
			{Name: "gone", Dir: filepath.Join(dir, "does-not-exist")},
			{Name: "other", Dir: filepath.Join(dir, "other")},
		}
		result := NewCrossContextComparator(&countingPair{}, 1, nil).CompareAcrossContexts(context.Background(), contexts, filepath.Join(dir, "out"), "")
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}

		gone := result.Comparisons["A.png"]["gone"]
		if gone == nil || gone.Kind != ErrorKindNotFound {
			t.Errorf("expected not found for the missing context, got %+v", gone)
		}
		if other := result.Comparisons["A.png"]["other"]; other == nil || other.Failed() {
			t.Errorf("expected the other context to be compared, got %+v", other)
		}
	})

	t.Run("MissingReferenceDirectory", func(t *testing.T) {
		dir := t.TempDir()
		contexts := Contexts{
			{Name: "gone", Dir: filepath.Join(dir, "does-not-exist")},
			{Name: "other", Dir: dir},
		}
		result := NewCrossContextComparator(&countingPair{}, 1, nil).CompareAcrossContexts(context.Background(), contexts, dir, "")
		if result.Err == nil {
			t.Error("expected a top-level error")
		}
		if result.Comparisons != nil {
			t.Error("no comparisons should be reported with a top-level error")
		}
	})

	t.Run("SeparatorsInContextNames", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"ref", "a", "a_b"} {
			writePNG(t, filepath.Join(dir, name, "A.png"), createTestImage(20, 20, white))
		}
		writePNG(t, filepath.Join(dir, "a", "b", "A.png"), createTestImage(20, 20, white))
		contexts := Contexts{
			{Name: "ref", Dir: filepath.Join(dir, "ref")},
			{Name: "a/b", Dir: filepath.Join(dir, "a", "b")},
			{Name: "a_b", Dir: filepath.Join(dir, "a_b")},
		}
		pair := &recordingPair{}
		result := NewCrossContextComparator(pair, 1, nil).CompareAcrossContexts(context.Background(), contexts, filepath.Join(dir, "out"), "")
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if len(pair.outputs) != 2 || pair.outputs[0] == pair.outputs[1] {
			t.Errorf("expected distinct outputs, got %v", pair.outputs)
		}
	})
}

type recordingPair struct {
	targets []string
	outputs []string
}

// Compare records targets; use it only with a concurrency of 1.
func (r *recordingPair) Compare(ctx context.Context, pathA string, pathB string, outputPath string) *DiffResult {
	r.targets = append(r.targets, pathB)
	r.outputs = append(r.outputs, outputPath)
	hasDifferences := false
	return &DiffResult{HasDifferences: &hasDifferences}
}
