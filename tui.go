package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yada/pipeline"
)

type statusMsg struct {
	update   pipeline.Update
	settings pipeline.Settings
}

type tickMsg time.Time

type tuiModel struct {
	toggle   func()
	frame    int
	status   pipeline.Status
	detail   string
	since    time.Time
	settings pipeline.Settings
	header   string

	width, height int
	runs          int
	transcript    string
	text          string
	lastErr       string
}

// Pre-computed pixel styles to avoid allocations in render loop
var (
	pixelColorsRec  = []string{"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"}
	pixelColorsIdle = []string{"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"}
	pixelStylesRec  [16]lipgloss.Style
	pixelStylesIdle [16]lipgloss.Style
	pixelBgRec      [16][16]lipgloss.Style
	pixelBgIdle     [16][16]lipgloss.Style
)

func init() {
	for i, c := range pixelColorsRec {
		if c != "" {
			pixelStylesRec[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		}
	}
	for i, c := range pixelColorsIdle {
		if c != "" {
			pixelStylesIdle[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		}
	}
	for i, fg := range pixelColorsRec {
		for j, bg := range pixelColorsRec {
			if fg != "" && bg != "" {
				pixelBgRec[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
	for i, fg := range pixelColorsIdle {
		for j, bg := range pixelColorsIdle {
			if fg != "" && bg != "" {
				pixelBgIdle[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
}

// newTUI builds the status screen. toggle is called from the `r` key and
// header is the provider/mode line shown under the eye.
func newTUI(toggle func(), header string, s pipeline.Settings) *tea.Program {
	m := tuiModel{toggle: toggle, header: header, settings: s, since: time.Now()}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.toggle != nil {
				toggle := m.toggle
				return m, func() tea.Msg { toggle(); return nil }
			}
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case statusMsg:
		u := msg.update
		if u.Status != m.status {
			m.since = time.Now()
		}
		m.status = u.Status
		m.detail = u.Detail
		m.settings = msg.settings
		switch u.Status {
		case pipeline.Recording:
			m.lastErr = ""
		case pipeline.Idle:
			if u.RunID != "" {
				m.runs++
				m.transcript = u.Transcript
				m.text = u.Text
			}
		case pipeline.Error:
			m.runs++
			m.lastErr = u.Detail
		}
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	elapsed := time.Since(m.since).Seconds()
	switch m.status {
	case pipeline.Recording:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).
			Render(fmt.Sprintf("● REC %.1fs", elapsed))
	case pipeline.Transcribing, pipeline.Rewriting, pipeline.Inserting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).
			Render(fmt.Sprintf("◐ %s %.1fs", strings.ToUpper(m.status.String()), elapsed))
	case pipeline.Error:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).
			Render("✗ ERROR")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("○ STANDBY")
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	recording := m.status == pipeline.Recording
	var level float64
	if m.status.Busy() && !recording {
		level = 0.004
	}

	eye := renderHALEye(m.frame, level, recording || m.status == pipeline.Error)

	infoLines := []string{m.statusLine()}
	if m.detail != "" && m.status != pipeline.Idle && m.status != pipeline.Error {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("  "+m.detail))
	}
	if m.header != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.header))
	}
	device := "device: system default"
	if m.settings.DeviceIndex != nil {
		device = fmt.Sprintf("device: #%d", *m.settings.DeviceIndex)
	}
	infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(device))
	infoLines = append(infoLines, "")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	verb := " to toggle recording"
	if m.settings.Mode == pipeline.Hold {
		verb = " (hold) to record"
	}
	infoLines = append(infoLines, boldStyle.Render(m.settings.Binding.String())+helpStyle.Render(verb))
	infoLines = append(infoLines, boldStyle.Render("r")+helpStyle.Render(" toggle  ")+boldStyle.Render("q")+helpStyle.Render(" quit"))
	infoLines = append(infoLines, helpStyle.Render("yada "+version))

	for _, line := range infoLines {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	logWidth := m.width - eyeWidth - 1
	if logWidth < 20 {
		logWidth = 20
	}
	wrapWidth := logWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var panel strings.Builder
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	switch {
	case m.lastErr != "":
		panel.WriteString(titleStyle.Render(fmt.Sprintf("Run #%d failed", m.runs)) + "\n\n")
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		for _, line := range wrapText(m.lastErr, wrapWidth) {
			panel.WriteString(errStyle.Render(line) + "\n")
		}
	case m.text != "":
		panel.WriteString(titleStyle.Render(fmt.Sprintf("Last dictation (#%d)", m.runs)) + "\n\n")
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
		for _, line := range wrapText(m.text, wrapWidth) {
			panel.WriteString(textStyle.Render(line) + "\n")
		}
		if m.transcript != "" && m.transcript != m.text {
			panel.WriteString("\n" + titleStyle.Render("heard:") + "\n")
			rawStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
			for _, line := range wrapText(m.transcript, wrapWidth) {
				panel.WriteString(rawStyle.Render(line) + "\n")
			}
		}
	default:
		panel.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("No dictations yet"))
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(panel.String())

	// Pad eye panel to full height (eye at top)
	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}

	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, logPanel)
}

func renderHALEye(frame int, level float64, recording bool) string {
	const charsW = 44
	const charsH = 15
	const pixW = charsW
	const pixH = charsH * 2

	centerX := float64(pixW) / 2
	centerY := float64(pixH) / 2

	// Voice-reactive breathing
	var breathe float64
	if recording {
		breathe = math.Sin(float64(frame)*0.10)*0.03 + level*10.0 - 0.05
	} else {
		breathe = math.Sin(float64(frame)*0.08)*0.02 - 0.05
	}

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}

	type ring struct {
		radius     float64
		breatheAmt float64
		colorIdx   int
	}

	rings := []ring{
		{0.6, 0.10, 1},
		{1.3, 0.12, 2},
		{2.0, 0.15, 3},
		{2.8, 0.35, 4},
		{3.5, 0.40, 5},
		{4.2, 0.38, 6},
		{5.0, 0.30, 7},
		{5.8, 0.15, 8},
		{6.5, 0.03, 9},
		{7.2, 0.0, 10},
		{8.0, 0.0, 11},
		{10.0, 0.0, 12},
		{12.0, 0.0, 13},
	}

	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)
			for _, r := range rings {
				radius := r.radius + breathe*r.breatheAmt*20
				if radius > 10.0 {
					radius = 10.0
				}
				if dist < radius {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	// Glass reflections
	type spot struct {
		ox, oy float64
		radius float64
		color  int
	}
	dSide := 9.0
	dSide2 := 7.2
	dTop := 10.0
	dTop2 := 8.2
	spots := []spot{
		{-dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{-dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -dTop, 0.8, 14},
		{0, -dTop2, 0.6, 15},
		{dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -2.0, 0.6, 14},
	}
	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			px := float64(x) - centerX
			py := float64(y) - centerY
			for _, s := range spots {
				dx := px - s.ox
				dy := py - s.oy
				rLen := math.Sqrt(s.ox*s.ox + s.oy*s.oy)
				if rLen < 0.001 {
					rLen = 1
				}
				tx, ty := -s.oy/rLen, s.ox/rLen
				dt := dx*tx + dy*ty
				dn := dx*(-ty) + dy*tx
				if (dt*dt)/9.0+dn*dn < s.radius*s.radius {
					pixels[y][x] = s.color
				}
			}
		}
	}

	// Use pre-computed styles based on recording state
	var styles *[16]lipgloss.Style
	var bgStyles *[16][16]lipgloss.Style
	if recording {
		styles = &pixelStylesRec
		bgStyles = &pixelBgRec
	} else {
		styles = &pixelStylesIdle
		bgStyles = &pixelBgIdle
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			topY := cy * 2
			botY := cy*2 + 1
			top := 0
			bot := 0
			if topY < pixH {
				top = pixels[topY][cx]
			}
			if botY < pixH {
				bot = pixels[botY][cx]
			}
			if top == 0 && bot == 0 {
				result.WriteString(" ")
			} else if top == bot {
				result.WriteString(styles[top].Render("█"))
			} else if top != 0 && bot == 0 {
				result.WriteString(styles[top].Render("▀"))
			} else if top == 0 && bot != 0 {
				result.WriteString(styles[bot].Render("▄"))
			} else {
				result.WriteString(bgStyles[top][bot].Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
