package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cbegin/metrosynth-go"
	"github.com/cbegin/metrosynth-go/internal/config"
	"github.com/cbegin/metrosynth-go/internal/metronome"
	"github.com/cbegin/metrosynth-go/internal/scene"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	screenW = 320
	screenH = 180
	scale   = 3

	// Bars grow up from the bottom edge, at most barMaxH tall.
	barMaxH = 120
)

var palette = []color.RGBA{
	{0, 0, 0, 255},
	{29, 43, 83, 255},
	{126, 37, 83, 255},
	{0, 135, 81, 255},
	{171, 82, 54, 255},
	{95, 87, 79, 255},
	{194, 195, 199, 255},
	{255, 241, 232, 255},
}

func paletteColor(i int) color.RGBA {
	return palette[i%len(palette)]
}

type game struct {
	engine *metrosynth.Engine
	scene  *scene.Scene
	driver *metronome.Driver
	start  time.Time
	volume float64
	status string
}

func newGame(cfg config.Config, logger *slog.Logger) (*game, error) {
	eng, err := metrosynth.NewEngine(metrosynth.WithConfig(cfg), metrosynth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sc, err := eng.Scene()
	if err != nil {
		return nil, err
	}
	if err := eng.Start(); err != nil {
		return nil, err
	}
	g := &game{
		engine: eng,
		scene:  sc,
		driver: metronome.NewDriver(sc, cfg.FrameRate),
		start:  time.Now(),
		volume: 1,
	}
	if err := sc.Err(); err != nil {
		_ = eng.Stop()
		return nil, err
	}
	return g, nil
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		g.driver.Reset()
	}
	g.driver.SetSlowMotion(ebiten.IsKeyPressed(ebiten.KeyE))
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		g.setVolume(g.volume + 0.1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		g.setVolume(g.volume - 0.1)
	}
	g.driver.Frame(time.Since(g.start).Seconds())
	g.status = fmt.Sprintf("t %.2f  vol %.1f  nodes %d", g.scene.Elapsed(), g.volume, g.engine.Context().LiveNodes())
	if g.driver.SlowMotion() {
		g.status += "  slow"
	}
	return nil
}

func (g *game) setVolume(v float64) {
	g.volume = clamp(v, 0, 2)
	g.engine.SetMasterVolume(g.volume)
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(paletteColor(scene.ColorBackground))
	for _, bar := range g.scene.Bars() {
		buf := bar.Buffer
		n := buf.Len()
		if n == 0 {
			continue
		}
		w := float64(screenW) / float64(n) * 4
		col := paletteColor(bar.Color)
		for i := 0; i < n; i++ {
			h := buf.Height(i, barMaxH)
			ebitenutil.DrawRect(screen, w*float64(i), screenH-h, w, h, col)
		}
	}
	ebitenutil.DebugPrint(screen, g.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return screenW, screenH
}

func (g *game) Close() { _ = g.engine.Stop() }

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		melody     = flag.String("melody", "", "notation looped under the metronome")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *melody != "" {
		cfg.Melody = *melody
	}
	cfg.Backend = "ebiten"
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	g, err := newGame(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(screenW*scale, screenH*scale)
	ebiten.SetWindowTitle("metrosynth")
	ebiten.SetTPS(int(cfg.FrameRate))
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
