package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/diogo/gemmy/internal/models"
)

func newModelsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models",
		Long: `List the models gemmy knows about. Any other model name accepted by the
API can still be passed with --model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current := models.DefaultModel.Name
			if cfg, err := deps.LoadConfig(); err == nil {
				current = models.ModelFromName(cfg.DefaultModel).Name
			}
			fmt.Fprintln(deps.Stdout, modelsTable(current))
			return nil
		},
	}
}

// modelsTable renders the catalog, marking the configured model with *
func modelsTable(current string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorTextDim)).
		Headers("", "MODEL", "ALIASES", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, m := range models.AllModels() {
		mark := ""
		if m.Name == current {
			mark = "*"
		}
		t.Row(mark, m.Name, strings.Join(models.Aliases(m.Name), ", "), m.Description)
	}
	return t.String()
}
