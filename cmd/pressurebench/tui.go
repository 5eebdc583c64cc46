package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pressurebench/internal/api"
	"pressurebench/internal/calibration"
	"pressurebench/internal/device"
	"pressurebench/internal/protocol"
)

// calibrateCommand is the line sent to the firmware to trigger the
// calibration handshake, mirroring the long-press on the device button.
const calibrateCommand = "CALIBRATE"

type updateMsg struct {
	update device.Update
}

type quitMsg struct{}

type clockMsg time.Time

type tuiModel struct {
	ctx     context.Context
	app     *api.API
	updates <-chan device.Update

	port      string
	connected bool
	message   string

	grams   *float64
	stress  *float64
	readAt  time.Time
	lastGap time.Duration
	history []float64

	tracker  calibration.Tracker
	rawLines []string

	width  int
	height int
	now    time.Time
}

func runTUI(ctx context.Context, app *api.API, updates <-chan device.Update, port string) error {
	m := tuiModel{
		ctx:       ctx,
		app:       app,
		updates:   updates,
		port:      port,
		connected: true,
		message:   "waiting for sensor stream",
		now:       time.Now(),
		history:   make([]float64, 0, 256),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(waitForUpdateCmd(m.ctx, m.updates), clockTickCmd())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch strings.ToLower(strings.TrimSpace(msg.String())) {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			if r := m.app.Send(calibrateCommand); !r.Success {
				m.message = r.Error
			} else {
				m.message = "calibration trigger sent"
			}
		case "r":
			m.tracker.Reset()
			m.message = "calibration view reset"
		}
		return m, nil
	case updateMsg:
		m = m.applyUpdate(msg.update)
		return m, waitForUpdateCmd(m.ctx, m.updates)
	case quitMsg:
		return m, tea.Quit
	case clockMsg:
		m.now = time.Time(msg)
		return m, clockTickCmd()
	default:
		return m, nil
	}
}

func (m tuiModel) applyUpdate(u device.Update) tuiModel {
	if u.Event == nil {
		m.connected = u.Connected
		if u.Err != nil {
			m.message = u.Err.Error()
		} else if u.Connected {
			m.message = "ok"
		} else {
			m.message = "disconnected"
		}
		return m
	}

	switch ev := u.Event.(type) {
	case protocol.ReadingEvent:
		if !m.readAt.IsZero() {
			gap := ev.At.Sub(m.readAt)
			if gap > 0 && gap < 10*time.Second {
				m.lastGap = gap
			}
		}
		grams, stress := ev.Grams, ev.Stress
		m.grams, m.stress = &grams, &stress
		m.readAt = ev.At
		m.history = append(m.history, grams)
		if len(m.history) > 240 {
			m.history = m.history[len(m.history)-240:]
		}
		m.message = "ok"
	case protocol.CalibrationEvent:
		m.tracker.Observe(ev)
	case protocol.RawLine:
		m.rawLines = append(m.rawLines, ev.Text)
		if len(m.rawLines) > 64 {
			m.rawLines = m.rawLines[len(m.rawLines)-64:]
		}
	}
	return m
}

func (m tuiModel) View() string {
	viewWidth, viewHeight := viewSize(m.width, m.height)
	now := m.now
	if now.IsZero() {
		now = time.Now()
	}

	qty := "-- g"
	stress := "-- g/mm²"
	if m.grams != nil {
		qty = fmt.Sprintf("%.2f g", *m.grams)
	}
	if m.stress != nil {
		stress = fmt.Sprintf("%.3f g/mm²", *m.stress)
	}

	updated := "-"
	lag := "-"
	if !m.readAt.IsZero() {
		updated = m.readAt.Format("15:04:05.000")
		d := now.Sub(m.readAt)
		if d < 0 {
			d = 0
		}
		lag = fmt.Sprintf("%d ms", d.Milliseconds())
	}
	rate := "-"
	if m.lastGap > 0 {
		rate = fmt.Sprintf("%.1f Hz", 1.0/m.lastGap.Seconds())
	}

	minV, maxV := historyRange(m.history)
	trend := sparkline(m.history, 28)
	if trend == "" {
		trend = "-"
	}

	leftW, rightW := splitWidths(viewWidth)

	titleLine := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Render("PRESSURE BENCH MONITOR")
	helpLine := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("Q: quit  |  C: calibrate  |  R: reset calibration view")
	header := renderPanel("Dashboard", []string{titleLine, helpLine}, viewWidth, "63", 2)

	qtyLine := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Render(qty)
	stressLine := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Render("Stress: " + stress)
	trendLine := lipgloss.NewStyle().Foreground(lipgloss.Color("112")).Render("Trend: " + trend)
	rangeLine := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(fmt.Sprintf("Range: %.2f .. %.2f", minV, maxV))
	readingPanel := renderPanel("Live Reading", []string{
		qtyLine,
		stressLine,
		trendLine,
		rangeLine,
		"Updated: " + updated,
	}, leftW, "45", 3)

	status := strings.TrimSpace(m.message)
	if status == "" {
		status = "ok"
	}
	badge := renderBadge(classifyStatus(status, m.connected))
	connPanel := renderPanel("Connection", []string{
		"Port: " + truncateText(m.port, rightW-12),
		"Rate: " + rate,
		"Lag: " + lag,
		"Status: " + badge,
		"Detail: " + truncateText(status, rightW-13),
	}, rightW, "69", 2)

	top := lipgloss.JoinHorizontal(lipgloss.Top, readingPanel, " ", connPanel)

	calPanel := renderPanel("Calibration", m.calibrationLines(), viewWidth, "99", 2)

	raw := m.rawLines
	limit := rawLineLimit(viewHeight, header, top, calPanel)
	if len(raw) > limit {
		raw = raw[len(raw)-limit:]
	}
	if len(raw) == 0 {
		raw = []string{"(empty)"}
	}
	rawPanel := renderPanel("Raw Stream", raw, viewWidth, "240", 1)

	layout := strings.Join([]string{header, "", top, "", calPanel, "", rawPanel}, "\n")
	return lipgloss.NewStyle().Padding(0, 1).Render(layout)
}

func (m tuiModel) calibrationLines() []string {
	labels := calibration.Labels()
	states := m.tracker.Steps()

	lines := make([]string, 0, calibration.StepCount+2)
	for i, label := range labels {
		marker := "[ ]"
		switch states[i] {
		case calibration.StepComplete:
			marker = "[x]"
		case calibration.StepActive:
			marker = "[>]"
		}
		lines = append(lines, fmt.Sprintf("%s %d. %s", marker, i+1, label))
	}

	latest := m.tracker.Latest()
	if latest == nil {
		lines = append(lines, "Long-press the device button or press C to start.")
		return lines
	}
	if latest.ReferenceUnit != nil {
		lines = append(lines, fmt.Sprintf("Reference unit: %.2f counts/g", *latest.ReferenceUnit))
	}
	if latest.VerificationGrams != nil {
		lines = append(lines, fmt.Sprintf("Verification: %.2f g", *latest.VerificationGrams))
	}
	if m.tracker.Finished() {
		lines = append(lines, "Calibration complete. Press R to dismiss.")
	}
	return lines
}

func waitForUpdateCmd(ctx context.Context, updates <-chan device.Update) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return quitMsg{}
		case u, ok := <-updates:
			if !ok {
				return quitMsg{}
			}
			return updateMsg{update: u}
		}
	}
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func classifyStatus(status string, connected bool) string {
	if !connected {
		return "ERROR"
	}
	v := strings.ToLower(status)
	switch {
	case v == "ok" || strings.HasSuffix(v, "sent") || strings.HasSuffix(v, "reset"):
		return "OK"
	case strings.Contains(v, "waiting"):
		return "WARN"
	default:
		return "ERROR"
	}
}

func viewSize(w, h int) (int, int) {
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 32
	}

	width := w - 4
	if width > 118 {
		width = 118
	}
	if width < 72 {
		width = 72
	}

	height := h - 2
	if height < 20 {
		height = 20
	}
	return width, height
}

func splitWidths(total int) (int, int) {
	left := int(math.Round(float64(total) * 0.56))
	if left < 38 {
		left = 38
	}
	right := total - left - 1
	if right < 28 {
		right = 28
		left = total - right - 1
	}
	return left, right
}

func renderPanel(title string, lines []string, width int, borderColor string, titleColor int) string {
	if width < 24 {
		width = 24
	}
	inner := width - 4

	normalized := make([]string, 0, len(lines)+2)
	for _, line := range lines {
		for _, part := range wrapByWidth(line, inner) {
			normalized = append(normalized, truncateText(part, inner))
		}
	}
	if len(normalized) == 0 {
		normalized = []string{""}
	}

	titleStyled := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("%d", titleColor))).Render(title)
	content := titleStyled + "\n" + strings.Join(normalized, "\n")

	style := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor))
	return style.Render(content)
}

func renderBadge(kind string) string {
	s := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch kind {
	case "OK":
		return s.Foreground(lipgloss.Color("46")).Background(lipgloss.Color("22")).Render("OK")
	case "WARN":
		return s.Foreground(lipgloss.Color("228")).Background(lipgloss.Color("94")).Render("WARN")
	default:
		return s.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Render("ERROR")
	}
}

func rawLineLimit(totalHeight int, header, top, cal string) int {
	used := lineCount(header) + lineCount(top) + lineCount(cal) + 6
	free := totalHeight - used
	if free < 2 {
		return 2
	}
	if free > 8 {
		return 8
	}
	return free
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func historyRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}

func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	blocks := []rune("▁▂▃▄▅▆▇█")
	if len(values) > width {
		values = values[len(values)-width:]
	}
	minV, maxV := historyRange(values)
	if math.Abs(maxV-minV) < 1e-9 {
		return strings.Repeat(string(blocks[0]), len(values))
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - minV) / (maxV - minV)
		idx := int(math.Round(norm * float64(len(blocks)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

func wrapByWidth(text string, width int) []string {
	if width <= 0 || text == "" {
		return []string{""}
	}

	lines := make([]string, 0, 8)
	for _, row := range strings.Split(text, "\n") {
		runes := []rune(row)
		if len(runes) == 0 {
			lines = append(lines, "")
			continue
		}
		for len(runes) > width {
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		lines = append(lines, string(runes))
	}
	return lines
}

func truncateText(text string, max int) string {
	runes := []rune(text)
	if max <= 0 {
		return ""
	}
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
