package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podforge/podforge/internal/state"
	"github.com/podforge/podforge/internal/wav"
	"github.com/podforge/podforge/podcast"
)

type scriptGeneratorMock struct {
	GenerateScriptFunc func(ctx context.Context, req podcast.ScriptRequest) (podcast.Script, error)
}

func (m *scriptGeneratorMock) GenerateScript(ctx context.Context, req podcast.ScriptRequest) (podcast.Script, error) {
	return m.GenerateScriptFunc(ctx, req)
}

type speechSynthesizerMock struct {
	SynthesizeSpeechFunc func(ctx context.Context, lines []podcast.ScriptLine) ([]byte, error)
}

func (m *speechSynthesizerMock) SynthesizeSpeech(ctx context.Context, lines []podcast.ScriptLine) ([]byte, error) {
	return m.SynthesizeSpeechFunc(ctx, lines)
}

type imageGeneratorMock struct {
	GenerateImageFunc func(ctx context.Context, subject string) (string, error)
}

func (m *imageGeneratorMock) GenerateImage(ctx context.Context, subject string) (string, error) {
	return m.GenerateImageFunc(ctx, subject)
}

// memorySegments stores encoded segments in memory and hands out mem:// URLs.
type memorySegments struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemorySegments() *memorySegments {
	return &memorySegments{data: make(map[string][]byte)}
}

func (m *memorySegments) StoreSegment(epoch int64, index int, data []byte) (podcast.AudioSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := fmt.Sprintf("mem://%d/%d", epoch, index)
	m.data[url] = data
	return podcast.AudioSegment{Index: index, URL: url}, nil
}

func testScript(lines int) podcast.Script {
	s := podcast.Script{Title: "Episode", Topic: "testing", Summary: "sum", Digest: "digest"}
	for i := 0; i < lines; i++ {
		s.Lines = append(s.Lines, podcast.ScriptLine{Speaker: podcast.SpeakerHost, Text: fmt.Sprintf("line %d", i)})
	}
	return s
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fixture struct {
	store      *state.Store
	library    *state.Library
	scripts    *scriptGeneratorMock
	speech     *speechSynthesizerMock
	images     *imageGeneratorMock
	controller *Controller
}

func newFixture() *fixture {
	f := &fixture{
		store:   state.NewStore(),
		library: state.NewLibrary(),
		scripts: &scriptGeneratorMock{
			GenerateScriptFunc: func(_ context.Context, _ podcast.ScriptRequest) (podcast.Script, error) {
				return testScript(9), nil
			},
		},
		speech: &speechSynthesizerMock{
			SynthesizeSpeechFunc: func(_ context.Context, lines []podcast.ScriptLine) ([]byte, error) {
				return []byte{0x01, 0x02}, nil
			},
		},
		images: &imageGeneratorMock{
			GenerateImageFunc: func(_ context.Context, _ string) (string, error) {
				return "", fmt.Errorf("no image service in this test")
			},
		},
	}
	f.controller = NewController(f.store, f.library, f.scripts, f.speech, f.images, newMemorySegments(), quietLogger())
	return f
}

func TestController_HappyPath(t *testing.T) {
	f := newFixture()

	// 9 lines with chunk size 6 gives 2 chunks (6 + 3 lines)
	done, err := f.controller.StartGeneration(context.Background(), StartRequest{
		Input:         "fifty words of source text",
		GenerateImage: false,
	})
	require.NoError(t, err)

	// chunk 0 is awaited before StartGeneration returns
	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusSynthesizing, snap.Status)
	require.NotNil(t, snap.Script)
	assert.Len(t, snap.AudioSegments, 1)

	<-done
	snap = f.store.Snapshot()
	assert.Equal(t, podcast.StatusComplete, snap.Status)
	assert.Len(t, snap.AudioSegments, 2)
	assert.Equal(t, 0, snap.AudioSegments[0].Index)
	assert.Equal(t, 1, snap.AudioSegments[1].Index)

	require.Equal(t, 1, f.library.Len())
	episode := f.library.Episodes()[0]
	assert.Len(t, episode.AudioSegments, 2)
	assert.Equal(t, "Episode", episode.Script.Title)
	assert.Equal(t, podcast.CustomContentCategory, episode.Category)
	assert.NotEmpty(t, episode.ID)
}

func TestController_ScriptFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.scripts.GenerateScriptFunc = func(_ context.Context, _ podcast.ScriptRequest) (podcast.Script, error) {
		return podcast.Script{}, fmt.Errorf("model unavailable")
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.Error(t, err)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusError, snap.Status)
	assert.Contains(t, snap.Err, "model unavailable")
	assert.Equal(t, 0, f.library.Len())
}

func TestController_FirstChunkFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.speech.SynthesizeSpeechFunc = func(_ context.Context, _ []podcast.ScriptLine) ([]byte, error) {
		return nil, fmt.Errorf("tts exploded")
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.Error(t, err)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusError, snap.Status)
	assert.Contains(t, snap.Err, "tts exploded")
	// the script was produced before the audio failure and stays visible
	assert.NotNil(t, snap.Script)
	assert.Empty(t, snap.AudioSegments)
	assert.Equal(t, 0, f.library.Len(), "nothing is committed on a fatal failure")
}

func TestController_LaterChunkFailureIsSkipped(t *testing.T) {
	f := newFixture()
	f.scripts.GenerateScriptFunc = func(_ context.Context, _ podcast.ScriptRequest) (podcast.Script, error) {
		return testScript(15), nil // 3 chunks of 6+6+3
	}
	var calls int
	var mu sync.Mutex
	f.speech.SynthesizeSpeechFunc = func(_ context.Context, _ []podcast.ScriptLine) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 { // chunk index 1
			return nil, fmt.Errorf("transient tts failure")
		}
		return []byte{0x01}, nil
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.NoError(t, err)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusComplete, snap.Status)
	// chunk 1 is omitted, not replaced with a placeholder
	require.Len(t, snap.AudioSegments, 2)
	assert.Equal(t, 0, snap.AudioSegments[0].Index)
	assert.Equal(t, 2, snap.AudioSegments[1].Index)

	require.Equal(t, 1, f.library.Len())
	assert.Len(t, f.library.Episodes()[0].AudioSegments, 2)
}

func TestController_NewGenerationSupersedesInFlight(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	var call int
	var mu sync.Mutex
	f.scripts.GenerateScriptFunc = func(_ context.Context, req podcast.ScriptRequest) (podcast.Script, error) {
		mu.Lock()
		call++
		mine := call
		mu.Unlock()
		if mine == 1 {
			<-release // first generation stalls until after the second starts
			s := testScript(6)
			s.Title = "stale"
			return s, nil
		}
		s := testScript(6)
		s.Title = "fresh"
		return s, nil
	}

	firstDone := make(chan struct{})
	var firstErr error
	go func() {
		defer close(firstDone)
		_, firstErr = f.controller.StartGeneration(context.Background(), StartRequest{Input: "first", Category: "one"})
	}()

	// wait for the first session to reach scripting
	require.Eventually(t, func() bool {
		return f.store.Snapshot().Category == "one"
	}, time.Second, 5*time.Millisecond)

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "second", Category: "two"})
	require.NoError(t, err)

	close(release)
	<-firstDone
	require.ErrorIs(t, firstErr, ErrSuperseded)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, "two", snap.Category)
	require.NotNil(t, snap.Script)
	assert.Equal(t, "fresh", snap.Script.Title, "stale script must never reach state")
	assert.Equal(t, podcast.StatusComplete, snap.Status)
	require.Equal(t, 1, f.library.Len(), "only the winning session commits")
	assert.Equal(t, "fresh", f.library.Episodes()[0].Script.Title)
}

func TestController_CancelDropsTrailingChunks(t *testing.T) {
	f := newFixture()
	blockTrailing := make(chan struct{})
	var calls int
	var mu sync.Mutex
	f.speech.SynthesizeSpeechFunc = func(_ context.Context, _ []podcast.ScriptLine) ([]byte, error) {
		mu.Lock()
		calls++
		mine := calls
		mu.Unlock()
		if mine > 1 {
			<-blockTrailing
		}
		return []byte{0x01}, nil
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.NoError(t, err)

	f.controller.CancelGeneration()
	close(blockTrailing)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusIdle, snap.Status)
	assert.Empty(t, snap.AudioSegments, "cancelled session's segments are discarded")
	assert.Equal(t, 0, f.library.Len(), "cancelled session never commits")
}

func TestController_CoverImageJoinsBeforeCommit(t *testing.T) {
	f := newFixture()
	imageReady := make(chan struct{})
	f.images.GenerateImageFunc = func(_ context.Context, subject string) (string, error) {
		<-imageReady
		assert.Equal(t, "testing", subject, "image is keyed off the script topic")
		return "data:image/png;base64,aGk=", nil
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text", GenerateImage: true})
	require.NoError(t, err)

	select {
	case <-done:
		t.Fatal("commit must wait for the cover image task")
	case <-time.After(50 * time.Millisecond):
	}

	close(imageReady)
	<-done

	require.Equal(t, 1, f.library.Len())
	assert.Equal(t, "data:image/png;base64,aGk=", f.library.Episodes()[0].CoverImage)
}

func TestController_ImageFailureIsNonFatal(t *testing.T) {
	f := newFixture()
	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text", GenerateImage: true})
	require.NoError(t, err)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusComplete, snap.Status)
	assert.Empty(t, snap.CoverImage)
	require.Equal(t, 1, f.library.Len())
	assert.Empty(t, f.library.Episodes()[0].CoverImage)
}

func TestController_PresetCoverSuppressesGeneration(t *testing.T) {
	f := newFixture()
	f.images.GenerateImageFunc = func(_ context.Context, _ string) (string, error) {
		t.Error("image service must not be called when a cover is preset")
		return "", nil
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{
		Input:         "text",
		CoverImage:    "preset-cover",
		GenerateImage: true,
	})
	require.NoError(t, err)
	<-done

	require.Equal(t, 1, f.library.Len())
	assert.Equal(t, "preset-cover", f.library.Episodes()[0].CoverImage)
}

func TestController_SegmentsAreValidContainers(t *testing.T) {
	segments := newMemorySegments()
	f := newFixture()
	f.controller = NewController(f.store, f.library, f.scripts, f.speech, f.images, segments, quietLogger())

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.NoError(t, err)
	<-done

	snap := f.store.Snapshot()
	require.NotEmpty(t, snap.AudioSegments)
	for _, seg := range snap.AudioSegments {
		data := segments.data[seg.URL]
		require.GreaterOrEqual(t, len(data), wav.HeaderSize)
		assert.Equal(t, "RIFF", string(data[0:4]))
	}
}

func TestController_EmptyScriptIsFatal(t *testing.T) {
	f := newFixture()
	f.scripts.GenerateScriptFunc = func(_ context.Context, _ podcast.ScriptRequest) (podcast.Script, error) {
		return podcast.Script{Title: "empty"}, nil
	}

	done, err := f.controller.StartGeneration(context.Background(), StartRequest{Input: "text"})
	require.Error(t, err)
	<-done

	snap := f.store.Snapshot()
	assert.Equal(t, podcast.StatusError, snap.Status)
	assert.Equal(t, 0, f.library.Len())
}
