package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/podforge/podforge/internal/ai"
	"github.com/podforge/podforge/internal/config"
	"github.com/podforge/podforge/internal/feeds"
	"github.com/podforge/podforge/internal/session"
	"github.com/podforge/podforge/internal/state"
	"github.com/podforge/podforge/internal/topics"
	"github.com/podforge/podforge/internal/wav"
	"github.com/podforge/podforge/podcast"
)

func main() {
	// parse command line flags
	text := flag.String("text", "", "source text to turn into a podcast")
	file := flag.String("file", "", "path to a document to turn into a podcast")
	topicName := flag.String("topic", "", "name of a registered topic for news-based generation")
	listTopics := flag.Bool("list-topics", false, "print the available topics and exit")
	length := flag.String("length", "", "episode length: short, medium, long")
	expertise := flag.String("expertise", "", "audience expertise: beginner, intermediate, expert")
	format := flag.String("format", "", "conversation format: interview, debate, narrative")
	tone := flag.String("tone", "", "tone: casual, professional, humorous")
	language := flag.String("lang", "", "output language")
	noImage := flag.Bool("no-image", false, "skip cover image generation")
	outDir := flag.String("out", "", "output directory (overrides OUTPUT_DIR)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	opts := podcast.GenerationOptions{
		Length:    *length,
		Expertise: *expertise,
		Format:    *format,
		Tone:      *tone,
		Language:  *language,
	}

	if err := run(cfg, runParams{
		text:       *text,
		file:       *file,
		topicName:  *topicName,
		listTopics: *listTopics,
		options:    opts,
		noImage:    *noImage,
	}, log); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

type runParams struct {
	text       string
	file       string
	topicName  string
	listTopics bool
	options    podcast.GenerationOptions
	noImage    bool
}

func run(cfg config.Config, params runParams, log *logrus.Logger) error {
	client := ai.NewClient(cfg.OpenAIAPIKey, cfg.APIBaseURL, nil, log)
	validator := feeds.NewValidator(cfg.ProxyBase, nil, log)
	registry := topics.NewRegistry(client, validator, client, log)

	if params.listTopics {
		for _, t := range registry.Topics() {
			fmt.Printf("%s (%d feeds)\n", t.Name, len(t.RSSURLs))
		}
		return nil
	}

	segments, err := wav.NewDirStore(filepath.Join(cfg.OutputDir, "segments"))
	if err != nil {
		return err
	}

	store := state.NewStore()
	store.OnChange(func(s state.Session) {
		log.WithFields(logrus.Fields{
			"status":   s.Status,
			"segments": len(s.AudioSegments),
		}).Info("session updated")
	})
	library := state.NewLibrary()
	controller := session.NewController(store, library, client, client, client, segments, log)

	ctx := context.Background()
	req, err := buildRequest(ctx, cfg, params, registry, log)
	if err != nil {
		return err
	}

	done, err := controller.StartGeneration(ctx, req)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	log.Info("first audio chunk ready, synthesizing the rest in the background")
	<-done

	snapshot := store.Snapshot()
	if snapshot.Status != podcast.StatusComplete {
		return fmt.Errorf("generation ended with status %s: %s", snapshot.Status, snapshot.Err)
	}

	episodes := library.Episodes()
	if len(episodes) == 0 {
		return fmt.Errorf("no episode committed to library")
	}
	return writeEpisode(ctx, episodes[0], cfg.OutputDir, log)
}

// buildRequest resolves the input source: pasted text, a document, or an
// assembled news context for a registered topic.
func buildRequest(ctx context.Context, cfg config.Config, params runParams,
	registry *topics.Registry, log *logrus.Logger) (session.StartRequest, error) {
	req := session.StartRequest{
		Options:          params.options,
		GenerateImage:    !params.noImage,
		MaxLinesPerChunk: cfg.MaxLinesPerChunk,
	}

	switch {
	case params.topicName != "":
		topic, ok := registry.GetByName(params.topicName)
		if !ok {
			return session.StartRequest{}, fmt.Errorf("unknown topic %q, try -list-topics", params.topicName)
		}
		req.Kind = podcast.KindNews
		req.Category = topic.Name
		req.CoverImage = topic.CustomImage
		req.Input = newsInput(ctx, cfg, topic, log)
	case params.file != "":
		data, err := os.ReadFile(params.file)
		if err != nil {
			return session.StartRequest{}, fmt.Errorf("failed to read input file: %w", err)
		}
		req.Kind = podcast.KindStandard
		req.Input = string(data)
	case params.text != "":
		req.Kind = podcast.KindStandard
		req.Input = params.text
	default:
		return session.StartRequest{}, fmt.Errorf("provide -text, -file, or -topic")
	}
	return req, nil
}

// newsInput assembles the news context for a topic, falling back to the
// model's own knowledge when the topic has no usable feeds.
func newsInput(ctx context.Context, cfg config.Config, topic podcast.Topic, log *logrus.Logger) string {
	if len(topic.RSSURLs) > 0 {
		builder := feeds.NewNewsBuilder(cfg.ProxyBase, nil, log)
		newsContext, err := builder.BuildContext(ctx, topic, cfg.MaxNewsItems)
		if err == nil {
			return newsContext
		}
		log.WithError(err).Warn("news context assembly failed, falling back to model knowledge")
	}
	return fmt.Sprintf("No live sources are available. Cover the most significant recent developments in %s from your own knowledge. %s",
		topic.Name, topic.Description)
}

// writeEpisode merges the episode's audio segments into one WAV and writes
// it next to the script and cover image.
func writeEpisode(ctx context.Context, ep podcast.Episode, outputDir string, log *logrus.Logger) error {
	sources := make([]wav.Source, 0, len(ep.AudioSegments))
	for _, seg := range ep.AudioSegments {
		sources = append(sources, wav.FileSource(seg.URL))
	}
	merged, err := wav.Merge(ctx, sources)
	if err != nil {
		return fmt.Errorf("failed to merge audio segments: %w", err)
	}

	audioPath := filepath.Join(outputDir, ep.ID+".wav")
	if err := os.WriteFile(audioPath, merged, 0o600); err != nil {
		return fmt.Errorf("failed to write episode audio: %w", err)
	}

	scriptJSON, err := json.MarshalIndent(ep.Script, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, ep.ID+".json"), scriptJSON, 0o600); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}

	if strings.HasPrefix(ep.CoverImage, "data:image/png;base64,") {
		img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ep.CoverImage, "data:image/png;base64,"))
		if err == nil {
			if err := os.WriteFile(filepath.Join(outputDir, ep.ID+".png"), img, 0o600); err != nil {
				log.WithError(err).Warn("failed to write cover image")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"title": ep.Script.Title,
		"audio": audioPath,
	}).Info("episode written")
	return nil
}
