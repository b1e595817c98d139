// Turmite CLI - runs compiled Turing machine bytecode against a tape
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/turmite/manifest"
	"github.com/chazu/turmite/pkg/bytecode"
	"github.com/chazu/turmite/pkg/decimal"
	"github.com/chazu/turmite/pkg/vm"
	"github.com/chazu/turmite/store"
)

func main() {
	var maxMoves int
	flag.IntVar(&maxMoves, "m", 0, "Maximum number of moves (0 = unlimited)")
	flag.IntVar(&maxMoves, "max-moves", 0, "Maximum number of moves (0 = unlimited)")

	dumpBytecode := flag.Bool("dump-bytecode", false, "Print a disassembly of the program before running")
	hideTape := flag.Bool("hide-tape", false, "Don't print the final tape")
	hideState := flag.Bool("hide-state", false, "Don't print the final state address")
	hideDecimal := flag.Bool("hide-decimal", false, "Don't print the decimal interpretation of the final tape")

	var radix uint
	var start, stride, digits int
	flag.UintVar(&radix, "r", 2, "Radix for the final decimal")
	flag.UintVar(&radix, "decimal-radix", 2, "Radix for the final decimal")
	flag.IntVar(&start, "s", 2, "Start position for the final decimal")
	flag.IntVar(&start, "decimal-start", 2, "Start position for the final decimal")
	flag.IntVar(&stride, "S", 2, "Stride for the final decimal")
	flag.IntVar(&stride, "decimal-stride", 2, "Stride for the final decimal")
	flag.IntVar(&digits, "d", 0, "Number of printed digits in the final decimal")
	flag.IntVar(&digits, "decimal-digits", 0, "Number of printed digits in the final decimal")

	manifestDir := flag.String("manifest", "", "Directory containing a turmite.toml run manifest")
	record := flag.String("record", "", "Archive the outcome in the given SQLite database")
	trace := flag.Bool("trace", false, "Log every executed instruction")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: turmite [options] [program.tmb] [tape]\n\n")
		fmt.Fprintf(os.Stderr, "Runs compiled Turing machine bytecode against an initial tape.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  turmite prog.tmb                  # Run with a blank tape\n")
		fmt.Fprintf(os.Stderr, "  turmite -m 1000 prog.tmb tape.txt # Bounded run with an initial tape\n")
		fmt.Fprintf(os.Stderr, "  turmite --manifest . --record runs.db\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if err := run(runConfig{
		args:        flag.Args(),
		maxMoves:    maxMoves,
		dump:        *dumpBytecode,
		hideTape:    *hideTape,
		hideState:   *hideState,
		hideDecimal: *hideDecimal,
		decimal: decimal.Options{
			Radix:  uint16(radix),
			Start:  start,
			Stride: stride,
			Digits: digits,
		},
		manifestDir: *manifestDir,
		record:      *record,
		trace:       *trace,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runConfig struct {
	args        []string
	maxMoves    int
	dump        bool
	hideTape    bool
	hideState   bool
	hideDecimal bool
	decimal     decimal.Options
	manifestDir string
	record      string
	trace       bool
}

func run(cfg runConfig) error {
	programPath, initial, err := resolveInputs(&cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(programPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", programPath, err)
	}
	program, err := bytecode.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", programPath, err)
	}

	if cfg.dump {
		listing, err := bytecode.Disassemble(program)
		if err != nil {
			return fmt.Errorf("%s: %w", programPath, err)
		}
		fmt.Print(listing)
		fmt.Println()
	}

	budget := cfg.maxMoves
	if budget <= 0 {
		budget = math.MaxInt
	}

	machine := vm.New(program, initial)
	machine.Trace = cfg.trace
	cause, err := machine.Run(budget)
	if err != nil {
		return err
	}
	result := &vm.Result{
		Tape:         machine.Tape(),
		Head:         machine.Head(),
		FinalAddress: machine.FinalAddress(),
		Moves:        machine.Moves(),
		Cause:        cause,
	}
	machine.Close()

	if !cfg.hideTape {
		fmt.Printf("tape: %v\n", result.Tape)
	}
	if !cfg.hideState {
		fmt.Printf("state: 0x%08X (%s)\n", result.FinalAddress, result.Cause)
	}
	fmt.Printf("moves: %d\n", result.Moves)

	var rendered string
	if !cfg.hideDecimal {
		rendered, err = decimal.Interpret(result.Tape, cfg.decimal)
		if err != nil {
			return err
		}
		fmt.Printf("decimal: %s\n", rendered)
	}

	if cfg.record != "" {
		id, err := archive(cfg.record, data, result, rendered)
		if err != nil {
			return err
		}
		fmt.Printf("recorded: %s\n", id)
	}
	return nil
}

// resolveInputs merges the manifest (when given) with positional arguments
// and explicit flags. Flags set on the command line win over the manifest.
func resolveInputs(cfg *runConfig) (programPath string, initial []uint16, err error) {
	if cfg.manifestDir != "" {
		m, err := manifest.Load(cfg.manifestDir)
		if err != nil {
			return "", nil, err
		}
		programPath = m.ProgramPath()
		initial, err = m.InitialTape()
		if err != nil {
			return "", nil, err
		}
		if !flagSet("m") && !flagSet("max-moves") {
			cfg.maxMoves = m.Run.MaxMoves
		}
		if !flagSet("r") && !flagSet("decimal-radix") {
			cfg.decimal.Radix = m.Decimal.Radix
		}
		if !flagSet("s") && !flagSet("decimal-start") {
			cfg.decimal.Start = m.Decimal.Start
		}
		if !flagSet("S") && !flagSet("decimal-stride") {
			cfg.decimal.Stride = m.Decimal.Stride
		}
		if !flagSet("d") && !flagSet("decimal-digits") {
			cfg.decimal.Digits = m.Decimal.Digits
		}
	}

	if len(cfg.args) > 0 {
		programPath = cfg.args[0]
	}
	if programPath == "" {
		flag.Usage()
		return "", nil, fmt.Errorf("no program given")
	}

	if len(cfg.args) > 1 {
		data, err := os.ReadFile(cfg.args[1])
		if err != nil {
			return "", nil, fmt.Errorf("cannot read %s: %w", cfg.args[1], err)
		}
		initial, err = manifest.ParseTape(string(data))
		if err != nil {
			return "", nil, err
		}
	}
	return programPath, initial, nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func archive(dbPath string, program []byte, result *vm.Result, rendered string) (string, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return db.Record(program, store.OutcomeOf(result, rendered))
}
