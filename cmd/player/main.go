// Package main provides the tapedeck CLI entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tapedeck/internal/app/player"
	"github.com/osa030/tapedeck/internal/app/status"
	"github.com/osa030/tapedeck/internal/domain/track"
	"github.com/osa030/tapedeck/internal/infra/config"
	"github.com/osa030/tapedeck/internal/infra/logger"
	"github.com/osa030/tapedeck/internal/infra/mpv"
	"github.com/osa030/tapedeck/internal/infra/playlistfile"
	"github.com/osa030/tapedeck/internal/infra/spotify"
)

var (
	app        = kingpin.New("tapedeck", "tapedeck playlist player")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	playlist   = app.Arg("playlist", "Playlist YAML file or directory of audio files").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	var cfg *config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			zlog.Fatal().Msgf("Failed to load config: %v", err)
		}
	} else {
		cfg = config.Default()
	}

	if err := run(cfg, *playlist); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, playlistPath string) error {
	engine, closeEngine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	tracks, err := loadTracks(playlistPath)
	if err != nil {
		return err
	}

	fmtOpts := status.FormatOptions{
		PadMinutes: cfg.Display.PadMinutes,
		NoTimeText: cfg.Display.NoTimeText,
	}

	p := player.New(engine, player.Config{
		TickInterval: cfg.TickInterval(),
		Format:       fmtOpts,
	})
	defer p.Close()

	p.OnPlay(func() { zlog.Info().Msg("playing") })
	p.OnPause(func() { zlog.Info().Msg("paused") })
	p.OnStop(func() { zlog.Info().Msg("stopped") })
	p.OnTrackChange(func(index int, t track.Track) {
		zlog.Info().Msgf("track %d: %s", index+1, t.DisplayName())
	})

	sink := &consoleSink{}
	p.SetStatusSink(sink)
	p.SetBoundarySink(sink)

	if err := p.Load(tracks); err != nil {
		return err
	}
	zlog.Info().Msgf("loaded %d tracks from %s", len(tracks), playlistPath)
	p.Play()

	return commandLoop(p, sink)
}

func buildEngine(cfg *config.Config) (player.Engine, func(), error) {
	switch cfg.Engine.Backend {
	case "spotify":
		e, err := spotify.NewEngine(context.Background(), spotify.Config{
			ClientID:     cfg.Engine.Spotify.ClientID,
			ClientSecret: cfg.Engine.Spotify.ClientSecret,
			RefreshToken: cfg.Engine.Spotify.RefreshToken,
			DeviceID:     cfg.Engine.Spotify.DeviceID,
		})
		if err != nil {
			return nil, nil, err
		}
		return e, func() {}, nil
	default:
		e, err := mpv.NewEngine()
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	}
}

func loadTracks(path string) ([]track.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return playlistfile.FromDirectory(path)
	}
	return playlistfile.FromFile(path)
}

// consoleSink keeps the latest projections for the status command. Updates
// arrive from the player's tick goroutine, so access is guarded.
type consoleSink struct {
	mu       sync.Mutex
	status   status.Status
	canPrev  bool
	canNext  bool
	haveInfo bool
}

func (s *consoleSink) UpdateStatus(st status.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.haveInfo = true
}

func (s *consoleSink) UpdateBoundary(canPrevious, canNext bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canPrev = canPrevious
	s.canNext = canNext
}

func (s *consoleSink) snapshot() (status.Status, bool, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.haveInfo, s.canPrev, s.canNext
}

func commandLoop(p *player.Player, sink *consoleSink) error {
	// Quit cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("commands: play pause toggle stop next prev goto N seek S status quit")

	for {
		select {
		case <-sigCh:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleCommand(p, sink, line); quit {
				return nil
			}
		}
	}
}

func handleCommand(p *player.Player, sink *consoleSink, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "play":
		p.Play()
	case "pause":
		p.Pause()
	case "toggle":
		p.PlayPause()
	case "stop":
		p.Stop()
	case "next":
		p.NextTrack()
	case "prev":
		p.PreviousTrack()
	case "goto":
		if len(fields) < 2 {
			fmt.Println("usage: goto N (1-based track number)")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("usage: goto N (1-based track number)")
			return false
		}
		p.PlayTrack(n - 1)
	case "seek":
		if len(fields) < 2 {
			fmt.Println("usage: seek S (seconds)")
			return false
		}
		sec, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			fmt.Println("usage: seek S (seconds)")
			return false
		}
		p.Seek(sec)
	case "status":
		printStatus(p, sink)
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}
	return false
}

func printStatus(p *player.Player, sink *consoleSink) {
	t, ok := p.CurrentTrack()
	if !ok {
		fmt.Println("no playlist loaded")
		return
	}

	st, haveInfo, canPrev, canNext := sink.snapshot()

	fmt.Printf("[%s] track %d: %s\n", p.State(), p.CurrentIndex()+1, t.DisplayName())
	if haveInfo {
		fmt.Printf("  %s / %s (%s remaining, %.0f%%)\n", st.Elapsed, st.Duration, st.Remaining, st.Percent)
	}
	fmt.Printf("  previous: %v  next: %v\n", canPrev, canNext)
}
