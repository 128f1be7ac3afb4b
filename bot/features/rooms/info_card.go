package rooms

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"
	"unicode/utf8"

	"chisato/domain/interfaces"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
)

// CardStyle defines the geometry of the room info card
type CardStyle struct {
	Width     int
	Height    int
	Padding   float64
	RowHeight float64
}

// InfoCardRenderer draws the PNG attached to the info action
type InfoCardRenderer struct {
	style CardStyle

	fontsOnce sync.Once
	fontsErr  error
	title     *truetype.Font
	body      *truetype.Font
}

// NewInfoCardRenderer creates a renderer with the default style
func NewInfoCardRenderer() *InfoCardRenderer {
	return &InfoCardRenderer{
		style: CardStyle{
			Width:     480,
			Height:    240,
			Padding:   20,
			RowHeight: 24,
		},
	}
}

func (r *InfoCardRenderer) loadFonts() error {
	r.fontsOnce.Do(func() {
		if r.title, r.fontsErr = truetype.Parse(gobold.TTF); r.fontsErr != nil {
			return
		}
		r.body, r.fontsErr = truetype.Parse(gomono.TTF)
	})
	return r.fontsErr
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:       size,
		DPI:        72,
		Hinting:    font.HintingFull,
		SubPixelsX: 4,
		SubPixelsY: 4,
	})
}

const maxCardNameRunes = 28

// Render draws info into a PNG
func (r *InfoCardRenderer) Render(labels InfoLabels, info *interfaces.RoomInfo) ([]byte, error) {
	start := time.Now()
	defer func() {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("channel_id", info.Room.VoiceChannelID).
			Debug("Room info card rendered")
	}()

	if err := r.loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	width, height := float64(r.style.Width), float64(r.style.Height)
	dc := gg.NewContext(r.style.Width, r.style.Height)

	grad := gg.NewLinearGradient(0, 0, width, height)
	grad.AddColorStop(0, rgb(0x23, 0x27, 0x2A))
	grad.AddColorStop(1, rgb(0x2C, 0x2F, 0x5A))
	dc.SetFillStyle(grad)
	dc.DrawRoundedRectangle(0, 0, width, height, 16)
	dc.Fill()

	pad := r.style.Padding
	y := pad + 22

	dc.SetFontFace(newFace(r.title, 22))
	dc.SetRGB(1, 1, 1)
	dc.DrawString(truncateRunes(info.ChannelName, maxCardNameRunes), pad, y)

	dc.SetRGBA(1, 1, 1, 0.25)
	dc.SetLineWidth(1)
	dc.DrawLine(pad, y+10, width-pad, y+10)
	dc.Stroke()

	rows := []struct {
		label string
		value string
		state *bool
	}{
		{labels.Leader, truncateRunes(info.LeaderName, maxCardNameRunes), nil},
		{labels.Limit, labels.limit(info.UserLimit), nil},
		{labels.Closed, labels.yesNo(info.Closed), &info.Closed},
		{labels.Hidden, labels.yesNo(info.Hidden), &info.Hidden},
		{labels.Cooldown, labels.cooldown(info), nil},
	}

	dc.SetFontFace(newFace(r.body, 14))
	y += 36
	for _, row := range rows {
		dc.SetRGB(0.7, 0.72, 0.8)
		dc.DrawString(row.label, pad, y)

		switch {
		case row.state == nil:
			dc.SetRGB(1, 1, 1)
		case *row.state:
			dc.SetRGB(1, 0.45, 0.45)
		default:
			dc.SetRGB(0.45, 1, 0.55)
		}
		dc.DrawStringAnchored(row.value, width-pad, y, 1, 0)
		y += r.style.RowHeight
	}

	r.drawOccupancy(dc, labels, info, pad, height-pad-14, width-2*pad)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawOccupancy draws members against the limit as a bar. Unlimited rooms get a full, dimmed bar.
func (r *InfoCardRenderer) drawOccupancy(dc *gg.Context, labels InfoLabels, info *interfaces.RoomInfo, x, y, w float64) {
	const barHeight = 10

	fill := 1.0
	caption := fmt.Sprintf("%s: %d", labels.Members, info.MemberCount)
	if info.UserLimit > 0 {
		fill = float64(info.MemberCount) / float64(info.UserLimit)
		if fill > 1 {
			fill = 1
		}
		caption = fmt.Sprintf("%s: %d/%d", labels.Members, info.MemberCount, info.UserLimit)
	}

	dc.SetRGB(0.85, 0.85, 0.9)
	dc.DrawString(caption, x, y-8)

	dc.SetRGBA(1, 1, 1, 0.12)
	dc.DrawRoundedRectangle(x, y, w, barHeight, barHeight/2)
	dc.Fill()

	if info.UserLimit == 0 {
		dc.SetRGBA(0.35, 0.4, 0.95, 0.45)
	} else {
		dc.SetRGB(0.35, 0.4, 0.95)
	}
	if fill > 0 {
		dc.DrawRoundedRectangle(x, y, w*fill, barHeight, barHeight/2)
		dc.Fill()
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}

func rgb(r, g, b uint8) color.Color {
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
