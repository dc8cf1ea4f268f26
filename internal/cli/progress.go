package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/fairprobe/internal/models"
	"github.com/raphaelgruber/fairprobe/internal/service"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job record
type jobUpdateMsg struct {
	job *models.AnalysisJob
	err error
}

// progressModel is the bubbletea model for analysis progress.
type progressModel struct {
	svc      *service.AnalysisService
	jobID    string
	job      *models.AnalysisJob
	progress progress.Model
	theme    Theme
	ownRun   bool
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model. ownRun marks jobs running
// inside this process, where quitting the view abandons the run.
func newProgressModel(s *service.AnalysisService, job *models.AnalysisJob, ownRun bool) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		svc:      s,
		jobID:    models.MustRecordIDString(job.ID),
		job:      job,
		progress: prog,
		theme:    defaultTheme,
		ownRun:   ownRun,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		// Fetch job status
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job

		// Check for terminal states
		switch m.job.Status {
		case models.StatusCompleted:
			m.done = true
			return m, tea.Quit
		case models.StatusFailed:
			m.done = true
			if m.job.ErrorDetail != nil {
				m.err = fmt.Errorf("%s", *m.job.ErrorDetail)
			} else {
				m.err = fmt.Errorf("job failed with unknown error")
			}
			return m, tea.Quit
		}

		// Continue polling for running jobs
		return m, tickCmd()

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return "Loading job status...\n"
	}

	pct := float64(m.job.Progress) / 100

	// Status line with color
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))

	// Progress bar with counts
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d%%", m.job.Progress)
	if total := len(m.job.SyntheticInputs); total > 0 && m.job.Status == models.StatusQueryingModel {
		counts = fmt.Sprintf("%d/%d records", len(m.job.ModelOutputs), total)
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to detach")
	if m.ownRun {
		hint = m.theme.hintStyle().Render("Press Ctrl+C to abandon the run")
	}

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		if m.ownRun {
			msg := fmt.Sprintf("\nRun abandoned. The job record stays %s until 'fairprobe sweep' marks it failed.\n",
				m.job.Status)
			return m.theme.hintStyle().Render(msg)
		}
		msg := fmt.Sprintf("\nDetached. Use 'fairprobe jobs %s' to check status.\n", m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Analysis failed: %s\n", m.err))
	}

	// Success with results
	if m.job != nil && m.job.Results != nil {
		r := m.job.Results
		var output string
		output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		output += fmt.Sprintf("  Overall bias score: %.3f\n", r.OverallBiasScore)
		for _, fm := range r.FairnessMetrics {
			if fm.Name == models.MetricDemographicParity {
				output += fmt.Sprintf("  Parity gap %-16s %.3f\n", fm.Group, fm.Value)
			}
		}
		output += m.theme.hintStyle().Render(fmt.Sprintf("\nFull report: fairprobe report %s\n", m.jobID))
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// fetchJob fetches the current job record from the store.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.svc.GetAnalysis(ctx, m.jobID)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunJobProgress runs the interactive progress UI for a job.
// Returns nil on success or Ctrl+C, error on job failure.
//
// Example usage:
//
//	job, err := svc.StartAnalysis(ctx, endpoint, opts)
//	if err != nil {
//	    return err
//	}
//	return RunJobProgress(svc, job, true)
func RunJobProgress(s *service.AnalysisService, job *models.AnalysisJob, ownRun bool) error {
	model := newProgressModel(s, job, ownRun)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	// Check final state
	if m, ok := finalModel.(progressModel); ok {
		// If the user quit with Ctrl+C, that is not an error
		if m.quitting {
			return nil
		}
		// If the job failed, return the error
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
