package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const pausePrompt = "Press any key to continue..."

// keyModel quits on the first key press.
type keyModel struct{}

func (keyModel) Init() tea.Cmd { return nil }

func (m keyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (keyModel) View() string { return pausePrompt }

// waitForKey prints the prompt and blocks for one key. On a terminal the
// key is read in raw mode through bubbletea, so no Enter is needed.
// Otherwise one byte is read from in; end of input counts as a key.
func waitForKey(in *os.File, out io.Writer) error {
	if isatty.IsTerminal(in.Fd()) {
		p := tea.NewProgram(keyModel{}, tea.WithInput(in), tea.WithOutput(out))
		_, err := p.Run()
		fmt.Fprintln(out)
		return err
	}

	fmt.Fprint(out, pausePrompt)
	defer fmt.Fprintln(out)

	_, err := in.Read(make([]byte, 1))
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
