/*
Copyright © 2024 the FiltrationStudy authors.
This file is part of FiltrationStudy.

FiltrationStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FiltrationStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FiltrationStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package filtrationutil contains the command line interface to the
// filtration model and functions that orchestrate simulations from a
// configuration.
package filtrationutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bpearlman97/FiltrationStudy"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	simFlags := []*pflag.FlagSet{runCmd.Flags(), sweepCmd.Flags()}

	// Options are the configuration options available to the model.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MaxTimeStep",
			usage: `
              MaxTimeStep is the longest time step allowed in the
              simulation, in seconds.`,
			defaultVal: 300.,
			flagsets:   simFlags,
		},
		{
			name: "MaxSaturationChange",
			usage: `
              MaxSaturationChange is the largest change in the ratio of
              volumetric deposit to the ultimate deposit allowed in any
              layer during one time step.`,
			defaultVal: 0.005,
			flagsets:   simFlags,
		},
		{
			name: "MaxRunTime",
			usage: `
              MaxRunTime is the length of the filter run in hours. The
              run ends when this time is reached unless another end
              criterion is met first.`,
			defaultVal: 48.,
			flagsets:   simFlags,
		},
		{
			name: "TerminalHeadLoss",
			usage: `
              TerminalHeadLoss is the total head loss across the bed, in
              meters, at which the filter run ends. Set it to zero to
              disable this criterion.`,
			defaultVal: 2.5,
			flagsets:   simFlags,
		},
		{
			name: "Breakthrough",
			usage: `
              Breakthrough is the ratio of effluent to influent
              concentration at which the filter run ends. Set it to zero
              to disable this criterion.`,
			defaultVal: 0.1,
			flagsets:   simFlags,
		},
		{
			name: "RecordInterval",
			usage: `
              RecordInterval is the simulated time in seconds between
              records of the effluent and head loss time series.`,
			defaultVal: 1800.,
			flagsets:   simFlags,
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   simFlags,
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the desired depth profile
              output location, including the file name. Files ending in
              ".xlsx" are written as spreadsheets and others as comma
              separated values. It can include environment variables and
              blob storage addresses such as "gs://bucket/profile.csv".`,
			defaultVal: "filtration_profile.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the depth profile output and how they should be
              calculated. Run 'filtration run --help' and refer to the list
              of layer variables for options. Expressions can combine
              variables with arithmetic and the functions exp, log, log10,
              abs, pow, min, and max.`,
			defaultVal: map[string]string{
				"CRatio":       "C / C0",
				"Deposit":      "Sigma",
				"Saturation":   "Saturation",
				"FilterCoeff":  "Lambda",
				"CumulHead":    "Head",
				"PoreVelocity": "Velocity",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TimeSeriesFile",
			usage: `
              TimeSeriesFile specifies where the record of effluent ratio,
              head loss, and deposited mass over time should be written.
              Leave it blank to skip writing the time series.`,
			defaultVal: "filtration_timeseries.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SummaryFile",
			usage: `
              SummaryFile specifies where a TOML summary of the filter run
              should be written. Leave it blank to skip writing the summary.`,
			defaultVal: "filtration_summary.toml",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ProfilePlot",
			usage: `
              ProfilePlot specifies where a plot of the final concentration
              and deposit profiles should be written. The format is chosen
              by the file extension (e.g., ".png", ".svg", ".pdf").
              Leave it blank to skip the plot.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "BreakthroughPlot",
			usage: `
              BreakthroughPlot specifies where a plot of effluent ratio and
              head loss over time should be written. Leave it blank to skip
              the plot.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "RestartFile",
			usage: `
              RestartFile specifies a bed state saved by a previous run
              (see SaveFile) to continue the simulation from. When it is
              set the physical parameters are read from the saved state.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SaveFile",
			usage: `
              SaveFile specifies where the bed state at the end of the run
              should be saved so that the run can be continued later.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Sweep.Parameter",
			usage: `
              Sweep.Parameter is the name of the physical parameter to vary,
              for example "AttachmentEfficiency" or "ApproachVelocity".`,
			defaultVal: "AttachmentEfficiency",
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "Sweep.Values",
			usage: `
              Sweep.Values are the values of Sweep.Parameter to simulate.`,
			defaultVal: []string{"0.2", "0.4", "0.6", "0.8", "1"},
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "Sweep.OutputFile",
			usage: `
              Sweep.OutputFile is where the table of run summaries should be
              written, as comma separated values or as a spreadsheet if the
              name ends in ".xlsx".`,
			defaultVal: "filtration_sweep.csv",
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "Sweep.Workers",
			usage: `
              Sweep.Workers is the number of simulations to run at the same
              time. Zero means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{sweepCmd.Flags()},
		},
		{
			name: "Calibrate.ObservationFile",
			usage: `
              Calibrate.ObservationFile is a TOML file holding the influent
              concentration and the concentrations measured at several depths
              in a clean bed.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calibrate.OutputFile",
			usage: `
              Calibrate.OutputFile is where the fitted coefficients should be
              written in TOML format. If it is blank they are printed.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Gradient.Concentration",
			usage: `
              Gradient.Concentration is the local suspended concentration
              in kg/m³. A negative value means the influent concentration.`,
			defaultVal: -1.,
			flagsets:   []*pflag.FlagSet{gradientCmd.Flags()},
		},
		{
			name: "Gradient.Deposit",
			usage: `
              Gradient.Deposit is the local specific deposit in kg/m³.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{gradientCmd.Flags()},
		},
	}
	options = append(options, parameterOptions(filtration.DefaultParameters(),
		runCmd.Flags(), sweepCmd.Flags(), calibrateCmd.Flags(), gradientCmd.Flags())...)

	Cfg = viper.New()
	Cfg.SetEnvPrefix("FILTRATION")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic(fmt.Errorf("filtrationutil: invalid option type %#v", option.defaultVal))
			}
		}
		Cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}

	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(sweepCmd)
	Root.AddCommand(calibrateCmd)
	Root.AddCommand(gradientCmd)
}

// parameterOptions creates one option named "Params.<Field>" for each of
// the physical parameters, with defaults from p.
func parameterOptions(p *filtration.Parameters, flagsets ...*pflag.FlagSet) []option {
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	var o []option
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		usage := fmt.Sprintf("\n              Params.%s is the %s [%s].",
			f.Name, strings.ToLower(f.Tag.Get("desc")), f.Tag.Get("units"))
		switch f.Name {
		case "NumLayers":
			usage = `
              Params.NumLayers is the number of computational layers the
              bed is divided into.`
		case "CleanFilterCoefficient":
			usage += `
              If it is zero it is calculated from the single-collector
              efficiency correlation.`
		}
		o = append(o, option{
			name:       "Params." + f.Name,
			usage:      usage,
			defaultVal: v.Field(i).Interface(),
			flagsets:   flagsets,
		})
	}
	return o
}

// setConfig reads in the configuration file if one is specified.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("filtration: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "filtration",
	Short: "A deep-bed filtration model.",
	Long: `filtration simulates the removal of suspended particles in a packed
granular filter bed, including the build-up of deposit, the evolution of
filter efficiency, and the growth of head loss over a filter run.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FILTRATION_VAR' where 'VAR' is the
upper-case name of the variable to be set, with periods replaced by underscores
(e.g., 'FILTRATION_PARAMS_BEDDEPTH'). File path variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the filtration model.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("FiltrationStudy v%s\n", filtration.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a filter run simulation.",
	Long: `run simulates a single filter run from a clean (or restarted) bed
until the run time, terminal head loss, or effluent breakthrough is
reached. It writes the final depth profile, the effluent and head loss time
series, an optional set of plots, and a TOML summary of the run.
Output locations may be local paths or blob storage addresses.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := RunConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		p, err := ParametersFromViper(Cfg)
		if err != nil {
			return err
		}
		_, err = Run(context.Background(), cmd, p, rc)
		return err
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a filter run for each value of a parameter.",
	Long: `sweep runs one filter run simulation for each of the values in
Sweep.Values of the parameter named by Sweep.Parameter, holding all other
parameters fixed. Simulations run concurrently and identical scenarios are
only simulated once. A table of run summaries is written to Sweep.OutputFile.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweepFromConfig(context.Background(), cmd, Cfg)
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Fit the clean bed filter coefficient to observations.",
	Long: `calibrate estimates the clean bed filter coefficient from the
concentrations measured at several depths in a clean filter bed, and the
attachment efficiency that makes the single-collector correlation match it.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParametersFromViper(Cfg)
		if err != nil {
			return err
		}
		obsFile, err := checkInputFile("Calibrate.ObservationFile", Cfg.GetString("Calibrate.ObservationFile"))
		if err != nil {
			return err
		}
		c, err := CalibrateFile(context.Background(), p, obsFile)
		if err != nil {
			return err
		}
		return writeCalibration(context.Background(), cmd, c, expandPath(Cfg.GetString("Calibrate.OutputFile")))
	},
}

var gradientCmd = &cobra.Command{
	Use:   "gradient",
	Short: "Print the local filtration state.",
	Long: `gradient prints the porosity, filter coefficient, concentration
gradient, filtration rate, and head loss gradient at a single point in the
bed with the given suspended concentration and specific deposit.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ParametersFromViper(Cfg)
		if err != nil {
			return err
		}
		s, err := Gradient(p, Cfg.GetFloat64("Gradient.Concentration"), Cfg.GetFloat64("Gradient.Deposit"))
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", s.String())
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(s)
	},
}
