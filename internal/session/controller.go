// Package session drives one generation end to end: script, chunked audio
// synthesis, cover image, and the final library commit. Exactly one session
// is current at a time; a new session supersedes the previous one through an
// epoch token checked before every state write.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/podforge/podforge/internal/state"
	"github.com/podforge/podforge/internal/wav"
	"github.com/podforge/podforge/podcast"
)

// ErrSuperseded reports that a newer generation replaced this one while it
// was in flight. The superseded session's results were dropped without
// touching state; it is not a user-visible failure.
var ErrSuperseded = errors.New("generation superseded by a newer request")

// ScriptGenerator produces a complete script from source content.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req podcast.ScriptRequest) (podcast.Script, error)
}

// SpeechSynthesizer turns a script fragment into raw 24kHz 16-bit mono PCM.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, lines []podcast.ScriptLine) ([]byte, error)
}

// ImageGenerator produces a cover image for a subject.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, subject string) (string, error)
}

// SegmentStore persists one encoded audio segment and returns its handle.
type SegmentStore interface {
	StoreSegment(epoch int64, index int, data []byte) (podcast.AudioSegment, error)
}

// StartRequest carries everything one generation needs.
type StartRequest struct {
	Input            string
	Kind             podcast.RequestKind
	Category         string
	CoverImage       string // preset cover, suppresses image generation
	Options          podcast.GenerationOptions
	GenerateImage    bool
	MaxLinesPerChunk int // 0 means podcast.DefaultMaxLinesPerChunk
}

// Controller owns the single current generation session.
type Controller struct {
	mu    sync.Mutex
	epoch int64

	store    *state.Store
	library  *state.Library
	scripts  ScriptGenerator
	speech   SpeechSynthesizer
	images   ImageGenerator
	segments SegmentStore
	log      *logrus.Logger

	sampleRate int
}

// NewController wires a controller to its services and state.
func NewController(store *state.Store, library *state.Library, scripts ScriptGenerator,
	speech SpeechSynthesizer, images ImageGenerator, segments SegmentStore, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		store:      store,
		library:    library,
		scripts:    scripts,
		speech:     speech,
		images:     images,
		segments:   segments,
		log:        log,
		sampleRate: wav.MergeSampleRate,
	}
}

// StartGeneration begins a new session, implicitly superseding any previous
// one. It blocks until the script and the first audio chunk are done, then
// continues the remaining chunks and the cover image in the background. The
// returned channel closes when the session settles (complete, error, or
// superseded). Fatal failures are returned and reflected in state;
// ErrSuperseded means a newer request won the race and nothing was published.
func (c *Controller) StartGeneration(ctx context.Context, req StartRequest) (<-chan struct{}, error) {
	epoch := c.nextEpoch()

	category := req.Category
	if category == "" {
		category = podcast.CustomContentCategory
	}
	c.store.Begin(epoch, category, req.CoverImage)

	done := make(chan struct{})

	script, err := c.scripts.GenerateScript(ctx, podcast.ScriptRequest{
		Content: req.Input,
		Kind:    req.Kind,
		Options: req.Options,
	})
	if err != nil {
		close(done)
		if !c.failSession(epoch, "script generation failed: "+err.Error()) {
			return done, ErrSuperseded
		}
		return done, err
	}

	ok := c.store.Apply(epoch, func(s *state.Session) {
		s.Script = &script
		c.transition(s, podcast.StatusSynthesizing)
	})
	if !ok {
		close(done)
		return done, ErrSuperseded
	}

	// cover image runs concurrently with audio synthesis; its completion is
	// joined before the library commit
	imageDone := make(chan struct{})
	if req.CoverImage != "" || !req.GenerateImage {
		close(imageDone)
	} else {
		go c.generateCover(ctx, epoch, script, imageDone)
	}

	chunks := podcast.ChunkScript(script, req.MaxLinesPerChunk)
	if len(chunks) == 0 {
		close(done)
		err := errors.New("script has no dialogue lines")
		if !c.failSession(epoch, err.Error()) {
			return done, ErrSuperseded
		}
		return done, err
	}

	// chunk 0 blocks the caller: a failure here is fatal because the user
	// has nothing playable yet
	if err := c.synthesizeChunk(ctx, epoch, 0, chunks[0]); err != nil {
		close(done)
		if errors.Is(err, ErrSuperseded) {
			return done, ErrSuperseded
		}
		if !c.failSession(epoch, "audio synthesis failed: "+err.Error()) {
			return done, ErrSuperseded
		}
		return done, err
	}

	go c.finish(ctx, epoch, chunks, imageDone, done)
	return done, nil
}

// CancelGeneration invalidates the current session. In-flight remote calls
// are not aborted; their results are discarded when they resolve against the
// bumped epoch.
func (c *Controller) CancelGeneration() {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	c.store.ResetIdle(epoch)
}

// finish synthesizes trailing chunks sequentially, waits for the cover image
// task, and commits the episode exactly once if the epoch is still current.
func (c *Controller) finish(ctx context.Context, epoch int64, chunks []podcast.Script,
	imageDone <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for i := 1; i < len(chunks); i++ {
		if !c.stillCurrent(epoch) {
			return
		}
		if err := c.synthesizeChunk(ctx, epoch, i, chunks[i]); err != nil {
			if errors.Is(err, ErrSuperseded) {
				return
			}
			// non-first chunks are skipped on failure, playback already
			// started and partial audio is acceptable
			c.log.WithError(err).WithField("chunk", i).Warn("skipping failed audio chunk")
		}
	}

	<-imageDone

	var episode podcast.Episode
	committed := c.store.Apply(epoch, func(s *state.Session) {
		c.transition(s, podcast.StatusComplete)
		episode = podcast.Episode{
			ID:            uuid.NewString(),
			Script:        *s.Script,
			AudioSegments: append([]podcast.AudioSegment(nil), s.AudioSegments...),
			CreatedAt:     time.Now(),
			Category:      s.Category,
			CoverImage:    s.CoverImage,
		}
	})
	if committed {
		c.library.Add(episode)
		c.log.WithFields(logrus.Fields{
			"episode":  episode.ID,
			"segments": len(episode.AudioSegments),
			"chunks":   len(chunks),
		}).Info("episode committed to library")
	}
}

// synthesizeChunk runs one chunk through TTS, encodes it, stores the segment,
// and publishes the handle. Returns ErrSuperseded if the epoch went stale.
func (c *Controller) synthesizeChunk(ctx context.Context, epoch int64, index int, chunk podcast.Script) error {
	pcm, err := c.speech.SynthesizeSpeech(ctx, chunk.Lines)
	if err != nil {
		return err
	}
	if !c.stillCurrent(epoch) {
		return ErrSuperseded
	}

	segment, err := c.segments.StoreSegment(epoch, index, wav.Encode(pcm, c.sampleRate))
	if err != nil {
		return err
	}

	if !c.store.Apply(epoch, func(s *state.Session) {
		s.AudioSegments = append(s.AudioSegments, segment)
	}) {
		return ErrSuperseded
	}
	return nil
}

// generateCover requests the cover image keyed off the script's subject.
// Failure is non-fatal; the cover simply stays absent.
func (c *Controller) generateCover(ctx context.Context, epoch int64, script podcast.Script, imageDone chan<- struct{}) {
	defer close(imageDone)

	subject := script.Topic
	if subject == "" {
		subject = script.Title
	}
	image, err := c.images.GenerateImage(ctx, subject)
	if err != nil {
		c.log.WithError(err).Warn("cover image generation failed")
		return
	}
	c.store.Apply(epoch, func(s *state.Session) {
		if s.CoverImage == "" {
			s.CoverImage = image
		}
	})
}

// failSession records a fatal failure. It reports whether the session was
// still current; a stale epoch leaves state untouched.
func (c *Controller) failSession(epoch int64, msg string) bool {
	return c.store.Apply(epoch, func(s *state.Session) {
		s.Err = msg
		c.transition(s, podcast.StatusError)
	})
}

func (c *Controller) transition(s *state.Session, to podcast.SessionStatus) {
	if err := s.Transition(to); err != nil {
		c.log.WithError(err).Error("state transition rejected")
	}
}

func (c *Controller) nextEpoch() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

func (c *Controller) stillCurrent(epoch int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}
