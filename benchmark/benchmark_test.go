package benchmark

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when a mock model advances it.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

// step is what a mock model does for one image.
type step struct {
	elapsed time.Duration
	classes []int
	err     error
}

// mockModel replays steps keyed by image name and advances the clock.
func mockModel(clock *fakeClock, steps map[string]step, calls *[]string) detector.Func {
	return func(img corpus.Image) ([]detector.Detection, error) {
		s := steps[img.Name]
		clock.t = clock.t.Add(s.elapsed)
		if calls != nil {
			*calls = append(*calls, img.Name)
		}
		if s.err != nil {
			return nil, s.err
		}
		dets := make([]detector.Detection, len(s.classes))
		for i, c := range s.classes {
			dets[i] = detector.Detection{Class: c, Score: 0.9}
		}
		return dets, nil
	}
}

func corpusOf(names ...string) []corpus.Image {
	images := make([]corpus.Image, len(names))
	for i, n := range names {
		images[i] = corpus.Image{Path: "test_images/" + n, Name: n}
	}
	return images
}

func TestRunSingleDetectorTwoImages(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	model := mockModel(clock, map[string]step{
		"a.jpg": {elapsed: 100 * time.Millisecond, classes: []int{0, 1}},
		"b.jpg": {elapsed: 200 * time.Millisecond, classes: []int{1}},
	}, nil)

	runner := NewRunner(WithClock(clock.now))
	result, err := runner.Run([]detector.Detector{{Name: "YOLOv5n", Model: model}}, corpusOf("a.jpg", "b.jpg"))
	require.NoError(t, err)

	require.Len(t, result.Summaries, 1)
	assert.Equal(t, ModelSummary{
		Model:           "YOLOv5n",
		AvgElapsed:      150 * time.Millisecond,
		TotalDetections: 3,
		UniqueClasses:   2,
	}, result.Summaries[0])

	assert.Equal(t, []PerImageRecord{
		{Image: "a.jpg", Model: "YOLOv5n", Elapsed: 100 * time.Millisecond, Count: 2, Classes: []int{0, 1}},
		{Image: "b.jpg", Model: "YOLOv5n", Elapsed: 200 * time.Millisecond, Count: 1, Classes: []int{1}},
	}, result.Records)
}

func TestRunTwoDetectorsNoDetections(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	steps := map[string]step{"only.png": {elapsed: 42 * time.Millisecond}}

	result, err := NewRunner(WithClock(clock.now)).Run([]detector.Detector{
		{Name: "YOLOv5n", Model: mockModel(clock, steps, nil)},
		{Name: "YOLOv5s", Model: mockModel(clock, steps, nil)},
	}, corpusOf("only.png"))
	require.NoError(t, err)

	require.Len(t, result.Summaries, 2)
	for i, name := range []string{"YOLOv5n", "YOLOv5s"} {
		s := result.Summaries[i]
		assert.Equal(t, name, s.Model)
		assert.Zero(t, s.TotalDetections)
		assert.Zero(t, s.UniqueClasses)
		assert.Equal(t, 42*time.Millisecond, s.AvgElapsed)

		assert.Zero(t, result.Records[i].Count)
		assert.Empty(t, result.Records[i].Classes)
	}
}

func TestRunOrderAndInvariants(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	steps := map[string]step{
		"1.jpg": {elapsed: 30 * time.Millisecond, classes: []int{2, 2, 7}},
		"2.jpg": {elapsed: 10 * time.Millisecond},
		"3.jpg": {elapsed: 50 * time.Millisecond, classes: []int{7, 0}},
	}
	images := corpusOf("3.jpg", "1.jpg", "2.jpg")
	detectors := []detector.Detector{
		{Name: "c", Model: mockModel(clock, steps, nil)},
		{Name: "a", Model: mockModel(clock, steps, nil)},
		{Name: "b", Model: mockModel(clock, steps, nil)},
	}

	result, err := NewRunner(WithClock(clock.now)).Run(detectors, images)
	require.NoError(t, err)
	require.Len(t, result.Records, len(detectors)*len(images))

	for di, d := range detectors {
		assert.Equal(t, d.Name, result.Summaries[di].Model)

		var total time.Duration
		count := 0
		seen := map[int]bool{}
		for ii, img := range images {
			rec := result.Records[di*len(images)+ii]
			assert.Equal(t, d.Name, rec.Model)
			assert.Equal(t, img.Name, rec.Image)
			assert.Equal(t, len(rec.Classes), rec.Count)
			total += rec.Elapsed
			count += rec.Count
			for _, c := range rec.Classes {
				seen[c] = true
			}
		}

		s := result.Summaries[di]
		assert.Equal(t, total/time.Duration(len(images)), s.AvgElapsed)
		assert.Equal(t, count, s.TotalDetections)
		assert.Equal(t, len(seen), s.UniqueClasses)
	}
	assert.Equal(t, []int{2, 2, 7}, result.Records[1].Classes)
}

func TestRunPermutedInputsPermuteRecords(t *testing.T) {
	steps := map[string]step{
		"1.jpg": {elapsed: 30 * time.Millisecond, classes: []int{2, 2, 7}},
		"2.jpg": {elapsed: 10 * time.Millisecond},
		"3.jpg": {elapsed: 50 * time.Millisecond, classes: []int{7, 0}},
	}
	run := func(names []string, images []corpus.Image) *Result {
		clock := &fakeClock{t: time.Unix(0, 0)}
		detectors := make([]detector.Detector, len(names))
		for i, n := range names {
			detectors[i] = detector.Detector{Name: n, Model: mockModel(clock, steps, nil)}
		}
		result, err := NewRunner(WithClock(clock.now)).Run(detectors, images)
		require.NoError(t, err)
		return result
	}

	first := run([]string{"c", "a", "b"}, corpusOf("3.jpg", "1.jpg", "2.jpg"))
	secondNames := []string{"b", "c", "a"}
	secondImages := corpusOf("2.jpg", "3.jpg", "1.jpg")
	second := run(secondNames, secondImages)

	byPair := map[string]PerImageRecord{}
	for _, r := range first.Records {
		byPair[r.Model+"/"+r.Image] = r
	}
	bySummary := map[string]ModelSummary{}
	for _, s := range first.Summaries {
		bySummary[s.Model] = s
	}

	require.Len(t, second.Records, len(first.Records))
	i := 0
	for di, name := range secondNames {
		assert.Equal(t, bySummary[name], second.Summaries[di])
		for _, img := range secondImages {
			rec := second.Records[i]
			assert.Equal(t, name, rec.Model)
			assert.Equal(t, img.Name, rec.Image)
			assert.Equal(t, byPair[name+"/"+img.Name], rec)
			i++
		}
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	var calls []string
	clock := &fakeClock{}
	model := mockModel(clock, nil, &calls)

	result, err := NewRunner().Run([]detector.Detector{{Name: "m", Model: model}}, nil)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, corpus.ErrEmptyCorpus))
	assert.Empty(t, calls)
}

func TestRunAbortsOnInferenceFailure(t *testing.T) {
	boom := errors.New("CUDA out of memory")
	clock := &fakeClock{t: time.Unix(0, 0)}

	var firstCalls, secondCalls []string
	steps := map[string]step{
		"a.jpg": {elapsed: time.Millisecond},
		"b.jpg": {err: boom},
		"c.jpg": {elapsed: time.Millisecond},
	}
	detectors := []detector.Detector{
		{Name: "first", Model: mockModel(clock, steps, &firstCalls)},
		{Name: "second", Model: mockModel(clock, steps, &secondCalls)},
	}

	var logs bytes.Buffer
	logger := log.New(&logs)

	result, err := NewRunner(WithClock(clock.now), WithLogger(logger)).Run(detectors, corpusOf("a.jpg", "b.jpg", "c.jpg"))
	assert.Nil(t, result)
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, firstCalls)
	assert.Empty(t, secondCalls)
	assert.Contains(t, logs.String(), "inference failed")
}

func TestRunLogsProgressPerDetector(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	steps := map[string]step{"a.jpg": {elapsed: time.Millisecond}}

	var logs bytes.Buffer
	logger := log.New(&logs)

	_, err := NewRunner(WithClock(clock.now), WithLogger(logger)).Run([]detector.Detector{
		{Name: "YOLOv5n", Model: mockModel(clock, steps, nil)},
		{Name: "YOLOv5s", Model: mockModel(clock, steps, nil)},
	}, corpusOf("a.jpg"))
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "running inference")
	assert.Contains(t, out, "YOLOv5n")
	assert.Contains(t, out, "YOLOv5s")
}

func TestNegativeElapsedIsClamped(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	model := detector.Func(func(corpus.Image) ([]detector.Detection, error) {
		clock.t = clock.t.Add(-time.Second)
		return nil, nil
	})

	result, err := NewRunner(WithClock(clock.now)).Run([]detector.Detector{{Name: "m", Model: model}}, corpusOf("a.jpg"))
	require.NoError(t, err)
	assert.Zero(t, result.Records[0].Elapsed)
}

func TestSummarize(t *testing.T) {
	acc := NewAccumulator().
		Add(PerImageRecord{Elapsed: time.Second, Count: 2, Classes: []int{3, 3}}).
		Add(PerImageRecord{Elapsed: 2 * time.Second, Count: 1, Classes: []int{4}})

	s := Summarize("m", acc, 4)
	assert.Equal(t, 750*time.Millisecond, s.AvgElapsed)
	assert.Equal(t, 3, s.TotalDetections)
	assert.Equal(t, 2, s.UniqueClasses)

	assert.Zero(t, Summarize("m", acc, 0).AvgElapsed)
	assert.Zero(t, Summarize("m", Accumulator{}.Add(PerImageRecord{}), 1).UniqueClasses)
}
