// Command imperare compiles one source file written in the imperative
// language lang.Parse understands into a plain-text instruction stream
// codegen.Compile produces, following the two-positional-path CLI shape
// the teacher's main.go uses for its own assembler.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oldhatfield/imperare/codegen"
	"github.com/oldhatfield/imperare/lang"
)

// config holds the optional per-project compiler toggles read from an
// imperare.yaml sitting next to the input file. A missing file is not an
// error; every field defaults to off.
type config struct {
	// LineComments appends a "; line N" trailer to every emitted
	// instruction, N being the instruction's 1-based position in the
	// output (not a source line; see withLineComments).
	LineComments bool `yaml:"line_comments"`
	// WarningsAsErrors turns a Compiler warning (e.g. a scalar read before
	// codegen can prove it was assigned) into a hard failure.
	WarningsAsErrors bool `yaml:"warnings_as_errors"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to the optional compiler config file (default: imperare.yaml beside the input file)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: imperare [-config imperare.yaml] <input-path> <output-path>")
		os.Exit(1)
	}
	inputPath, outputPath := args[0], args[1]

	if err := run(inputPath, outputPath, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "imperare:", err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath, configPath string) error {
	if configPath == "" {
		configPath = filepath.Join(filepath.Dir(inputPath), "imperare.yaml")
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("reading config %s: %s", configPath, err)
	}

	src, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	prog, lineTokens, err := lang.Parse(string(src))
	if err != nil {
		return err
	}

	lines, compiler, err := codegen.Compile(prog, lineTokens)
	if err != nil {
		return err
	}

	if cfg.WarningsAsErrors && len(compiler.Warnings) > 0 {
		return fmt.Errorf("%d warning(s) treated as errors: %s", len(compiler.Warnings), compiler.Warnings[0])
	}
	for _, w := range compiler.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if cfg.LineComments {
		lines = withLineComments(lines)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

// withLineComments appends a "; line N" trailer to each instruction, N
// being its 1-based position in the generated program. This is a raw
// instruction index, not a source line: codegen does not retain a
// per-instruction source mapping beyond the diagnostic line cursor used
// for error messages.
func withLineComments(lines []string) []string {
	commented := make([]string, len(lines))
	for i, line := range lines {
		commented[i] = fmt.Sprintf("%s ; line %d", line, i+1)
	}
	return commented
}
