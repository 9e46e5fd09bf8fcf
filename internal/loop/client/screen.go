package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/level"
	"github.com/tomz197/sieve/internal/loop/config"
	"github.com/tomz197/sieve/internal/loop/server"
	"github.com/tomz197/sieve/internal/object"
	"github.com/tomz197/sieve/internal/phase"
	"github.com/tomz197/sieve/internal/physics"
	"github.com/tomz197/sieve/internal/tilt"
)

// gaugeAt is where the tilt arrow sits on the logical canvas.
var gaugeAt = draw.Point{X: config.ViewWidth - 10, Y: config.ViewHeight - 12}

// boxStyle frames the menu and the modal screens.
var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(1, 4).
	Align(lipgloss.Center)

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	// On game state or inactivity transitions, do a full terminal clear
	// so UI elements from the previous state don't persist on screen.
	stateChanged := c.state.GameState != c.state.prevGameState
	inactiveChanged := c.state.isInactive != c.state.wasInactive
	if stateChanged || inactiveChanged {
		c.chunkWriter.WriteString("\033[H\033[2J")
		c.canvas.ForceRedraw()
		c.state.prevGameState = c.state.GameState
		c.state.wasInactive = c.state.isInactive
	}

	c.canvas.Clear()

	snapshot := c.server.GetSnapshot(c.handle.ID)
	showTable := snapshot.Started && c.state.GameState != GameStateMenu

	ctx := object.DrawContext{
		Canvas: c.canvas,
		Writer: c.chunkWriter,
		View:   c.state.View,
	}

	c.sieve.Shape = snapshot.Sieve
	c.sieve.Rotation = snapshot.Rotation
	c.sieve.GatherRadius = snapshot.GatherRadius
	c.sieve.ClearRadius = snapshot.ClearRadius
	c.sieve.Phase = snapshot.Phase
	if err := c.sieve.Draw(ctx); err != nil {
		return err
	}

	if showTable {
		c.trackDrops(snapshot)
		for _, b := range snapshot.Bodies {
			if b.Kind != physics.KindStone {
				continue
			}
			if err := (object.Stone{Body: b}).Draw(ctx); err != nil {
				return err
			}
		}
		arrow := object.TiltArrow{
			At:    gaugeAt,
			Tilt:  snapshot.Tilt,
			Limit: tilt.DefaultParams().Limit,
			Size:  6,
		}
		if err := arrow.Draw(ctx); err != nil {
			return err
		}
	}

	for _, obj := range c.effects {
		if err := obj.Draw(ctx); err != nil {
			return err
		}
	}

	// Render canvas to terminal
	c.canvas.Render(c.chunkWriter)

	// Draw border when terminal exceeds max render resolution
	c.canvas.RenderBorder(c.chunkWriter)

	// Beans are glyphs, drawn over the rendered canvas.
	if showTable {
		tint := c.beanColor(snapshot.Level)
		for _, b := range snapshot.Bodies {
			if b.Kind != physics.KindBean {
				continue
			}
			if err := (object.Bean{Body: b, Color: tint}).Draw(ctx); err != nil {
				return err
			}
		}
		label := object.Text{At: draw.Point{X: gaugeAt.X, Y: gaugeAt.Y + 9}, Value: "tilt", Color: draw.ColorDim}
		if err := label.Draw(ctx); err != nil {
			return err
		}
	}

	// Draw UI overlay
	c.drawUI(snapshot)

	return c.chunkWriter.Flush()
}

// trackDrops puffs dust where a bean first drops through the mesh.
func (c *Client) trackDrops(snapshot *server.TableSnapshot) {
	if snapshot.Level.Number != c.state.Level {
		return
	}
	for _, b := range snapshot.Bodies {
		if b.Kind != physics.KindBean || !b.Filtered || c.dropped[b.ID] {
			continue
		}
		c.dropped[b.ID] = true
		object.SpawnDust(c.state.View.Project(b.Pos), config.DustPerBean, c)
	}
}

// beanColor returns the ANSI colour for the level's beans.
func (c *Client) beanColor(cfg level.Config) string {
	if c.beanTint != "" && c.tintFor == cfg.Number {
		return c.beanTint
	}
	r, g, b, err := cfg.RGB()
	if err != nil {
		return draw.ColorYellow
	}
	c.beanTint = draw.FgRGB(r, g, b)
	c.tintFor = cfg.Number
	return c.beanTint
}

// drawUI draws the game UI overlay.
func (c *Client) drawUI(snapshot *server.TableSnapshot) {
	termWidth := c.canvas.TerminalWidth()
	termHeight := c.canvas.TerminalHeight()
	centerX := termWidth / 2
	centerY := termHeight / 2

	if c.state.GameState == GameStateShutdown {
		c.drawShutdownScreen(centerX, centerY)
		return
	}

	if c.state.isInactive {
		c.drawInactivityScreen(centerX, centerY)
		return
	}

	switch c.state.GameState {
	case GameStatePlaying:
		c.drawPlayingHUD(termWidth, termHeight, snapshot)
	case GameStateMenu:
		c.drawMenuScreen(centerX, centerY)
	case GameStateLevelComplete:
		c.drawPlayingHUD(termWidth, termHeight, snapshot)
		c.drawLevelCompleteScreen(centerX, centerY)
	case GameStateNotice:
		c.drawNoticeScreen(centerX, centerY)
	}
}

// drawBox writes lines centred in a bordered box around (centerX, centerY).
func (c *Client) drawBox(centerX, centerY int, lines ...string) {
	box := boxStyle.Render(strings.Join(lines, "\n"))
	rows := strings.Split(box, "\n")
	width := lipgloss.Width(box)

	left := max(1, centerX-width/2)
	top := max(1, centerY-len(rows)/2)
	for i, row := range rows {
		if top+i > c.canvas.TerminalHeight() {
			break
		}
		c.chunkWriter.WriteAt(left, top+i, row)
		c.canvas.MarkTextDirty(left, top+i, width)
	}
}

// blink returns s or a blank of the same width, alternating for prompts.
func blink(s string) string {
	if time.Now().UnixMilli()/600%2 == 0 {
		return s
	}
	return strings.Repeat(" ", len(s))
}

// pairingURL is the controller link for this session, or "".
func (c *Client) pairingURL() string {
	if c.bridgeURL == "" || c.handle.PairCode == "" {
		return ""
	}
	return strings.TrimRight(c.bridgeURL, "/") + "/?code=" + c.handle.PairCode
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "INACTIVITY WARNING"
	cw.WriteAt(centerX-len(title)/2, centerY-2, title)

	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	cw.WriteAt(centerX-len(msg)/2, centerY, msg)

	hint := "Press any key to continue"
	cw.WriteAt(centerX-len(hint)/2, centerY+2, hint)
}

// drawMenuScreen draws the title screen.
func (c *Client) drawMenuScreen(centerX, centerY int) {
	cfg := c.state.levelConfig()
	lines := []string{
		"S I E V E   &   S T O N E S",
		"",
		"Tilt the sieve to roll the stones into the ring,",
		"then sift every bean out through the mesh.",
		"",
		"Mouse  . . . . . .  Tilt toward pointer",
		"Arrows / WASD  . . . . . .  Nudge tilt",
		"C  . . . . . . . . . . . .  Level out",
		"R  . . . . . . . . . . .  Restart level",
		"Q  . . . . . . . . . . . . . . .  Quit",
		"",
		fmt.Sprintf("Level %-2d  %2d stones, %2d beans   (keys 1-9, 0)", cfg.Number, cfg.StoneCount, cfg.BeanCount),
		"",
		blink(">>  Press SPACE to Start  <<"),
	}
	if url := c.pairingURL(); url != "" {
		lines = append(lines, "", "Tilt with your phone:", url)
	}
	c.drawBox(centerX, centerY, lines...)
}

// drawPlayingHUD draws the in-game HUD.
// Text fields use fixed-width formatting so shrinking values don't leave
// residual characters on screen (since we no longer clear every frame).
func (c *Client) drawPlayingHUD(termWidth, termHeight int, snapshot *server.TableSnapshot) {
	cw := c.chunkWriter

	levelText := fmt.Sprintf("Level %-2d of %d", c.state.Level, level.MaxLevel)
	cw.WriteAt(2, 1, levelText)

	sourceText := fmt.Sprintf("Tilt: %-7s", snapshot.Source)
	if snapshot.Source == tilt.SourceSensor {
		sourceText = draw.ColorBrightCyan + sourceText + draw.ColorReset
	}
	cw.WriteAt(termWidth-len("Tilt: ")-8, 1, sourceText)

	cw.WriteAt(2, 2, fmt.Sprintf("%-40s", objectiveText(snapshot)))

	hint := "Mouse/arrows tilt  C level  R restart  Esc menu"
	if url := c.pairingURL(); url != "" {
		// OSC 8 hyperlink so terminals that support it open the controller.
		label := "Phone: " + url
		hint = fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, label)
	}
	cw.WriteAt(2, termHeight, hint)

	playersText := fmt.Sprintf("Players: %-4d", snapshot.Players)
	cw.WriteAt(termWidth-len(playersText)-1, termHeight, playersText)
}

// objectiveText describes what is left to do on the table.
func objectiveText(snapshot *server.TableSnapshot) string {
	if !snapshot.Started {
		return "Setting the table..."
	}
	switch snapshot.Phase {
	case phase.Gathering:
		return fmt.Sprintf("Gather the stones in the ring: %d left", snapshot.Remaining(physics.KindStone))
	case phase.Clearing:
		return fmt.Sprintf("Sift out the beans: %d left", snapshot.Remaining(physics.KindBean))
	default:
		return "Level cleared!"
	}
}

// drawLevelCompleteScreen draws the level summary.
func (c *Client) drawLevelCompleteScreen(centerX, centerY int) {
	lines := []string{fmt.Sprintf("LEVEL %d CLEARED", c.state.Level), ""}
	if c.state.Cleared {
		lines = append(lines,
			"All levels cleared!",
			"",
			blink(">>  Press SPACE to return to the menu  <<"),
		)
	} else {
		next, _ := level.Next(c.state.Level)
		cfg := level.ForLevel(next)
		lines = append(lines,
			fmt.Sprintf("Next: level %d, %d stones and %d beans", next, cfg.StoneCount, cfg.BeanCount),
			"",
			blink(">>  Press SPACE to Continue  <<"),
		)
	}
	c.drawBox(centerX, centerY, lines...)
}

// drawNoticeScreen draws a blocking message.
func (c *Client) drawNoticeScreen(centerX, centerY int) {
	c.drawBox(centerX, centerY,
		"NOTICE",
		"",
		c.state.Notice,
		"Mouse and keyboard still tilt the sieve.",
		"",
		blink(">>  Press SPACE to Continue  <<"),
	)
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "SERVER SHUTTING DOWN"
	cw.WriteAt(centerX-len(title)/2, centerY-3, title)

	msg1 := "The server is restarting for maintenance."
	cw.WriteAt(centerX-len(msg1)/2, centerY-1, msg1)

	msg2 := "Please reconnect in a moment."
	cw.WriteAt(centerX-len(msg2)/2, centerY, msg2)

	remaining := int(c.state.shutdownTimer) + 1
	countdown := fmt.Sprintf("Disconnecting in %d seconds...", remaining)
	cw.WriteAt(centerX-len(countdown)/2, centerY+2, countdown)

	hint := "Press Q to disconnect now"
	cw.WriteAt(centerX-len(hint)/2, centerY+4, hint)
}
