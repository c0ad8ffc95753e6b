// Package screen shows a radar.Feed in an ebiten window.
package screen

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"d2sync/radar"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	backgroundColor = color.RGBA{0x10, 0x10, 0x14, 0xff}
	hoverColor      = color.RGBA{0xff, 0xff, 0xff, 0xff}

	blipColors = map[radar.BlipKind]color.RGBA{
		radar.BlipLocal:     {0x00, 0xff, 0x00, 0xff},
		radar.BlipPlayer:    {0x00, 0xa0, 0xff, 0xff},
		radar.BlipParty:     {0x40, 0xff, 0xff, 0xff},
		radar.BlipCorpse:    {0x80, 0x80, 0x80, 0xff},
		radar.BlipMonster:   {0xff, 0x30, 0x30, 0xff},
		radar.BlipElite:     {0xff, 0xa0, 0x00, 0xff},
		radar.BlipMercenary: {0x30, 0xc0, 0x30, 0xff},
		radar.BlipPortal:    {0x60, 0x60, 0xff, 0xff},
		radar.BlipWaypoint:  {0x90, 0x90, 0xff, 0xff},
		radar.BlipShrine:    {0xff, 0x60, 0xff, 0xff},
		radar.BlipChest:     {0xc0, 0x90, 0x40, 0xff},
		radar.BlipMissile:   {0xff, 0xff, 0x60, 0xff},
		radar.BlipItem:      {0xff, 0xd7, 0x00, 0xff},
	}
)

// Game implements ebiten.Game, which has Update, Draw and Layout methods.
type Game struct {
	feed *radar.Feed
}

func NewGame(feed *radar.Feed) *Game {
	return &Game{feed: feed}
}

func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyKPAdd):
		g.feed.Zoom(1.25)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract):
		g.feed.Zoom(0.8)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	frame := g.feed.Frame()
	vector.DrawFilledRect(screen, 0, 0, float32(screen.Bounds().Dx()), float32(screen.Bounds().Dy()), backgroundColor, false)

	for _, b := range frame.Blips {
		radius := float32(2)
		switch b.Kind {
		case radar.BlipLocal, radar.BlipPlayer, radar.BlipParty:
			radius = 4
		case radar.BlipElite, radar.BlipWaypoint, radar.BlipPortal:
			radius = 3
		}
		vector.DrawFilledCircle(screen, b.X, b.Y, radius, blipColors[b.Kind], false)
		if b.Hovered {
			vector.StrokeCircle(screen, b.X, b.Y, radius+2, 1, hoverColor, false)
		}
		if b.Label != "" {
			ebitenutil.DebugPrintAt(screen, b.Label, int(b.X)+6, int(b.Y)-8)
		}
	}

	ebitenutil.DebugPrint(screen, strings.Join(frame.Lines, "\n"))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	frame := g.feed.Frame()
	return frame.Width, frame.Height
}

// Run opens the window and blocks until it is closed.
func Run(feed *radar.Feed, title string) error {
	frame := feed.Frame()
	ebiten.SetWindowSize(frame.Width, frame.Height)
	ebiten.SetWindowTitle(title)
	return ebiten.RunGame(NewGame(feed))
}
