package badgeservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Black-And-White-Club/rota-badges/app/shared/results"
	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette holds the colours of rendered charts.
type ChartPalette struct {
	Background drawing.Color
	Bar        drawing.Color
	TextColor  drawing.Color
}

// DefaultPalette is used by LeaderboardChart.
var DefaultPalette = ChartPalette{
	Background: drawing.ColorFromHex("0f172a"),
	Bar:        drawing.ColorFromHex("f59e0b"),
	TextColor:  drawing.ColorFromHex("e2e8f0"),
}

// LeaderboardChart renders the team leaderboard as a PNG bar chart.
func (s *BadgeService) LeaderboardChart(ctx context.Context, teamID uuid.UUID, limit int) ([]byte, error) {
	result, err := withTelemetry(s, ctx, "LeaderboardChart", teamID.String(), func(ctx context.Context) (results.OperationResult[[]byte, error], error) {
		board, err := s.leaderboard(ctx, teamID, clampLimit(limit, DefaultLeaderboardLimit))
		if err != nil {
			return results.OperationResult[[]byte, error]{}, err
		}
		png, err := GenerateLeaderboardChart(board.Entries, DefaultPalette)
		if err != nil {
			return results.OperationResult[[]byte, error]{}, fmt.Errorf("render chart: %w", err)
		}
		return results.SuccessResult[[]byte, error](png), nil
	})
	return unwrap(result, err)
}

// GenerateLeaderboardChart produces a PNG bar chart of total badges per member.
func GenerateLeaderboardChart(entries []LeaderboardEntry, palette ChartPalette) ([]byte, error) {
	if len(entries) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	bars := make([]chart.Value, 0, len(entries))
	top := 0
	for _, e := range entries {
		bars = append(bars, chart.Value{
			Label: e.MemberName,
			Value: float64(e.TotalBadges),
			Style: chart.Style{
				FillColor:   palette.Bar,
				StrokeColor: palette.Bar,
			},
		})
		if e.TotalBadges > top {
			top = e.TotalBadges
		}
	}

	graph := chart.BarChart{
		Title:      "Badge Leaderboard",
		TitleStyle: chart.Style{FontColor: palette.TextColor},
		Width:      800,
		Height:     400,
		BarWidth:   48,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40},
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.Style{
			FontColor: palette.TextColor,
		},
		YAxis: chart.YAxis{
			Name: "Badges",
			Style: chart.Style{
				FontColor: palette.TextColor,
			},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top + 1)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No badges awarded yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis: chart.YAxis{Style: chart.Style{Hidden: true}},
		// Render refuses a chart without series.
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				chartDefaults.WriteToRenderer(r)
				r.SetFontColor(palette.TextColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
