package nelson

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
)

type options struct {
	options []ConfigOption
	err     error
}

// ParseCommandLine configures the command from command line options or from a YAML configuration file passed
// with the -c flag.  Returns the positional arguments (the input file) and a slice of functional options that
// can be applied to the configuration.
func ParseCommandLine() ([]string, []ConfigOption, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], pf)
}

func parse(args []string, pf *pflag.FlagSet) ([]string, []ConfigOption, error) {
	options := options{}
	if err := pf.ParseAll(args, parseFlag(&options)); err != nil {
		return pf.Args(), options.options, err
	}
	return pf.Args(), options.options, options.err
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("nelson", pflag.ContinueOnError)
	pf.Usage = func() {
		fmt.Printf("Usage of nelson:\nnelson <options> samples.txt\ncat samples.txt | nelson <options> -\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
		fmt.Printf("\nSamples are read one per line as value or label,value.  Lines starting with # are ignored.\n")
	}

	pf.StringP("id", "i", defaultID, "Name of this control chart, used in output, reports and the history store")
	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.StringP("format", "f", FormatText, "Output format: text, json or prom")
	pf.StringP("output", "o", "", "Write the result to this file instead of stdout")
	pf.IntP("window", "w", 0, "Evaluate only the trailing N samples")
	pf.String("set", "", "Override a rule parameter as rule.param=value, e.g. rule5.k=2.5.  Repeatable.")
	pf.Bool("parallel", false, "Evaluate the rules concurrently")
	pf.Bool("watch", false, "Re-evaluate every time the input file changes until interrupted")
	pf.String("store", "", "Save every evaluation to this SQLite database")
	pf.Bool("fail-on-violation", false, "Exit with status 2 if any rule flags a point")
	pf.String("host", "", "Host to which to send chart state reports as host:port")
	pf.Bool("insecure", false, "Do not use TLS to secure connection for reports")
	pf.Bool("no-error-reports", false, "Do not send reports when there are unexpected errors in the client")
	pf.String("log-level", "warn", "Log level: debug, info, warn or error")

	return pf
}

func parseFlag(o *options) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, opts...)
		default:
			if flag.Value.Type() == "bool" && value == "false" {
				return nil
			}
			option, err := handleOption(flag.Name, value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, option)
		}
		return nil
	}
}

func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "id":
		return ID(value), nil
	case "format":
		return Format(value), nil
	case "output":
		return Output(value), nil
	case "window":
		return Window(value), nil
	case "set":
		return Set(value), nil
	case "parallel":
		return Parallel(), nil
	case "watch":
		return Watch(), nil
	case "store":
		return Store(value), nil
	case "fail-on-violation":
		return FailOnViolation(), nil
	case "host":
		return Host(value), nil
	case "insecure":
		return Insecure(), nil
	case "no-error-reports":
		return NoErrorReports(), nil
	case "log-level":
		return LogLevel(value), nil
	default:
		return nil, fmt.Errorf("unknown option: %s", name)
	}
}

// parseFromFile reads options from YAML.  Scalar keys take the same names as the command line flags; a bool
// key only applies its option when true.  `set` takes a list of rule.param=value settings and `rules` a
// mapping of rule name to parameters:
//
//	rules:
//	  rule5: {k: 2.5}
//	  rule2: {n: 8}
func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := os.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := cfg[k].(type) {
		case string:
			opt, err := handleOption(k, v)
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case int:
			opt, err := handleOption(k, strconv.Itoa(v))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case float64:
			opt, err := handleOption(k, strconv.FormatFloat(v, 'f', -1, 64))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case bool:
			if !v {
				continue
			}
			opt, err := handleOption(k, "")
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		// handles the rules mapping and the list of settings
		case interface{}:
			alt := nestedFieldsYAML{}
			if err := yaml.Unmarshal(data, &alt); err != nil {
				return options, fmt.Errorf("could not unmarshal config value for key: %s", k)
			}
			switch k {
			case "rules":
				options = append(options, RuleParams(alt.Rules))
			case "set":
				for _, val := range alt.Set {
					options = append(options, Set(val))
				}
			default:
				return options, fmt.Errorf("unknown option: %s", k)
			}
		default:
			return options, fmt.Errorf("could not process config key %s, unknown type", k)
		}
	}
	return options, nil
}

type nestedFieldsYAML struct {
	Rules map[string]map[string]float64 `yaml:"rules"`
	Set   []string                      `yaml:"set"`
}
