package cmd

import (
	"strconv"
	"strings"

	"github.com/idlab-discover/snidpipe/internal/apperr"
	snidio "github.com/idlab-discover/snidpipe/internal/io"
	"github.com/idlab-discover/snidpipe/internal/lnw"
	"github.com/idlab-discover/snidpipe/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lnwCmd = &cobra.Command{
	Use:   "lnw <template.lnw>",
	Short: "Summarize a SNID template spectrum",
	Long:  "Reads a .lnw template file and lists its epochs with their ages and flux ranges.",
	Args:  cobra.ExactArgs(1),
	RunE:  runLnw,
}

type templateSummary struct {
	Name       string    `json:"name" yaml:"name"`
	Type       string    `json:"type" yaml:"type"`
	Epochs     int       `json:"epochs" yaml:"epochs"`
	Ages       []float64 `json:"ages" yaml:"ages"`
	Columns    []string  `json:"columns" yaml:"columns"`
	Points     int       `json:"points" yaml:"points"`
	WaveMin    float64   `json:"wavelength_min" yaml:"wavelength_min"`
	WaveMax    float64   `json:"wavelength_max" yaml:"wavelength_max"`
	NearestAge *float64  `json:"nearest_age,omitempty" yaml:"nearest_age,omitempty"`
}

func runLnw(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(strings.TrimSpace(viper.GetString("lnw.format")))
	if format != "" && format != "table" && format != "json" && format != "yaml" {
		return apperr.Userf("invalid --format %q (expected table|json|yaml)", format)
	}

	tpl, err := lnw.ReadFile(args[0])
	if err != nil {
		return err
	}

	sum := templateSummary{
		Name:    tpl.Name,
		Type:    tpl.Type,
		Epochs:  tpl.Epochs(),
		Ages:    tpl.Ages,
		Columns: tpl.Columns,
		Points:  len(tpl.Wavelength),
	}
	sum.WaveMin, sum.WaveMax = tpl.Range()

	nearest := -1
	if raw := viper.GetString("lnw.age"); raw != "" {
		age, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return apperr.Userf("invalid --age %q", raw)
		}
		if nearest = tpl.Nearest(age); nearest >= 0 {
			sum.NearestAge = &tpl.Ages[nearest]
		}
	}

	if format == "json" || format == "yaml" {
		return snidio.Encode(cmd.OutOrStdout(), sum, format)
	}

	rows := make([][]string, 0, len(tpl.Ages))
	for i, age := range tpl.Ages {
		lo, hi := columnRange(tpl.Flux, i)
		rows = append(rows, []string{
			strconv.Itoa(i + 1), tpl.Columns[i+1], ff(age, 1), ff(lo, 3), ff(hi, 3),
		})
	}
	title := tpl.Name + " (" + tpl.Type + "), " + strconv.Itoa(sum.Points) + " points, " +
		ff(sum.WaveMin, 1) + "-" + ff(sum.WaveMax, 1) + " Å"
	ui.NewReportUI(cmd.OutOrStdout(), false).PrintTables(ui.TableView{
		Title:     title,
		Headers:   []string{"#", "column", "age", "flux min", "flux max"},
		Rows:      rows,
		Emphasize: func(row int) bool { return row == nearest },
	})
	return nil
}

// columnRange returns the flux extremes of epoch i.
func columnRange(flux [][]float64, i int) (lo, hi float64) {
	for n, v := range flux[i] {
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}

func init() {
	lnwCmd.Flags().StringP("format", "f", "", "Output format: table|json|yaml")
	lnwCmd.Flags().String("age", "", "Highlight the epoch closest to this age (days)")
	bindFlags(lnwCmd, "format", "age")
}
