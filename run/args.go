package run

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schustan/TypeCNN/cnn"
)

// ArgumentError reports an invalid command line. The caller prints the
// reason together with a usage hint and exits with a failure code.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return e.Reason }

func argumentErrorf(format string, args ...any) error {
	return &ArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// fileList collects repeatable file arguments. A single occurrence may also
// carry several comma separated paths.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(value string) error {
	for _, p := range strings.Split(value, ",") {
		if p != "" {
			*f = append(*f, p)
		}
	}
	return nil
}

// Flags that are meaningful in every mode.
var commonFlags = map[string]bool{
	"help":      true,
	"cnn":       true,
	"grayscale": true,
	"type-info": true,
}

// Flags allowed when running inference.
var inferenceFlags = map[string]bool{
	"input": true,
}

// Flags allowed when running standalone validation.
var validationFlags = map[string]bool{
	"validate":        true,
	"validate-offset": true,
	"validate-num":    true,
}

// canonical maps every accepted flag spelling to its canonical long name,
// so mode validation does not care which alias was used.
var canonical = map[string]string{
	"h": "help", "help": "help",
	"c": "cnn", "cnn": "cnn",
	"g": "grayscale", "grayscale": "grayscale",
	"type-info": "type-info",
	"i":         "input", "input": "input",
	"v": "validate", "validate": "validate",
	"validate-offset": "validate-offset",
	"validate-num":    "validate-num",
	"t":               "train", "train": "train",
	"train-offset":        "train-offset",
	"train-num":           "train-num",
	"s":                   "seed",
	"seed":                "seed",
	"e":                   "epochs",
	"epochs":              "epochs",
	"l":                   "learning-rate",
	"learning-rate":       "learning-rate",
	"d":                   "weight-decay",
	"weight-decay":        "weight-decay",
	"b":                   "batch-size",
	"batch-size":          "batch-size",
	"do-not-load":         "do-not-load",
	"do-not-save":         "do-not-save",
	"keep-best":           "keep-best",
	"optimizer":           "optimizer",
	"loss-function":       "loss-function",
	"shuffle":             "shuffle",
	"periodic-validation": "periodic-validation",
	"periodic-output":     "periodic-output",
	"plot":                "plot",
}

// ParseArgs validates the raw command line into a RunConfig. All argument
// level failures come back as *ArgumentError.
func ParseArgs(args []string) (*RunConfig, error) {
	if len(args) == 0 {
		return nil, argumentErrorf("No parameters given.")
	}

	fs := flag.NewFlagSet("typecnn", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		help      bool
		cnnPath   string
		grayscale bool
		typeInfo  bool

		inferencePath string

		validateFiles  fileList
		validateOffset uint
		validateNum    uint

		trainFiles  fileList
		trainOffset uint
		trainNum    uint

		seed       uint64
		epochs     uint
		batchSize  uint
		learning   float64
		decay      float64
		doNotLoad  bool
		doNotSave  bool
		keepBest   bool
		optimizer  string
		lossName   string
		shuffle    bool
		periodic   bool
		outputRate uint
		plotPath   string
	)

	fs.BoolVar(&help, "h", false, "")
	fs.BoolVar(&help, "help", false, "")
	fs.StringVar(&cnnPath, "c", "", "")
	fs.StringVar(&cnnPath, "cnn", "", "")
	fs.BoolVar(&grayscale, "g", false, "")
	fs.BoolVar(&grayscale, "grayscale", false, "")
	fs.BoolVar(&typeInfo, "type-info", false, "")
	fs.StringVar(&inferencePath, "i", "", "")
	fs.StringVar(&inferencePath, "input", "", "")
	fs.Var(&validateFiles, "v", "")
	fs.Var(&validateFiles, "validate", "")
	fs.UintVar(&validateOffset, "validate-offset", 0, "")
	fs.UintVar(&validateNum, "validate-num", 0, "")
	fs.Var(&trainFiles, "t", "")
	fs.Var(&trainFiles, "train", "")
	fs.UintVar(&trainOffset, "train-offset", 0, "")
	fs.UintVar(&trainNum, "train-num", 0, "")
	fs.Uint64Var(&seed, "s", 0, "")
	fs.Uint64Var(&seed, "seed", 0, "")
	fs.UintVar(&epochs, "e", 10, "")
	fs.UintVar(&epochs, "epochs", 10, "")
	fs.Float64Var(&learning, "l", 0.01, "")
	fs.Float64Var(&learning, "learning-rate", 0.01, "")
	fs.Float64Var(&decay, "d", 0, "")
	fs.Float64Var(&decay, "weight-decay", 0, "")
	fs.UintVar(&batchSize, "b", 8, "")
	fs.UintVar(&batchSize, "batch-size", 8, "")
	fs.BoolVar(&doNotLoad, "do-not-load", false, "")
	fs.BoolVar(&doNotSave, "do-not-save", false, "")
	fs.BoolVar(&keepBest, "keep-best", false, "")
	fs.StringVar(&optimizer, "optimizer", "sgd", "")
	fs.StringVar(&lossName, "loss-function", "MSE", "")
	fs.BoolVar(&shuffle, "shuffle", false, "")
	fs.BoolVar(&periodic, "periodic-validation", false, "")
	fs.UintVar(&outputRate, "periodic-output", 0, "")
	fs.StringVar(&plotPath, "plot", "", "")

	if err := fs.Parse(args); err != nil {
		return nil, &ArgumentError{Reason: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, argumentErrorf("Unexpected argument %q.", fs.Arg(0))
	}

	// Canonical names of every flag that was actually supplied, regardless
	// of which alias spelled it.
	supplied := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		supplied[canonical[f.Name]] = true
	})

	cfg := &RunConfig{
		CNNPath:   cnnPath,
		Grayscale: grayscale,
		TypeInfo:  typeInfo,

		InferencePath: inferencePath,

		ValidationFiles:  validateFiles,
		ValidationOffset: validateOffset,
		ValidationNum:    validateNum,

		TrainingFiles:  trainFiles,
		TrainingOffset: trainOffset,
		TrainingNum:    trainNum,

		LoadWeights: !doNotLoad,
		SaveWeights: !doNotSave,
		KeepBest:    keepBest,

		OptimizerName: optimizer,
		LearningRate:  float32(learning),
		WeightDecay:   float32(decay),
		LossName:      lossName,

		PlotPath: plotPath,
	}
	cfg.Settings = settingsFromFlags(epochs, batchSize, shuffle, outputRate, periodic)

	if help {
		cfg.Help = true
		return cfg, nil
	}

	if supplied["seed"] {
		cfg.Seed = int64(seed)
	} else {
		cfg.Seed = time.Now().UnixNano()
	}

	if typeInfo && len(supplied) == 1 {
		cfg.TypeInfoOnly = true
		return cfg, nil
	}

	if cnnPath == "" {
		return nil, argumentErrorf("Network description file required.")
	}

	cfg.Inference = supplied["input"]
	cfg.Validation = supplied["validate"]
	cfg.Training = supplied["train"]

	if !cfg.Inference && !cfg.Validation && !cfg.Training {
		return nil, argumentErrorf("No mode chosen. Choose either inference, training and/or validation.")
	}
	if cfg.Inference && (cfg.Validation || cfg.Training) {
		return nil, argumentErrorf("Cannot run inference mode along validation/training.")
	}

	if supplied["validate-offset"] || supplied["validate-num"] {
		if !cfg.Validation {
			return nil, argumentErrorf("Cannot set validation offset/num without setting validation files.")
		}
	}
	if supplied["train-offset"] || supplied["train-num"] {
		if !cfg.Training {
			return nil, argumentErrorf("Cannot set training offset/num without setting training files.")
		}
	}

	if cfg.Inference {
		for name := range supplied {
			if !commonFlags[name] && !inferenceFlags[name] {
				return nil, argumentErrorf("Invalid combination of parameters for Inference mode.")
			}
		}
	}
	if cfg.Validation && !cfg.Training {
		for name := range supplied {
			if !commonFlags[name] && !validationFlags[name] {
				return nil, argumentErrorf("Invalid combination of parameters for Validation mode.")
			}
		}
	}

	if cfg.Training {
		if cfg.KeepBest && !cfg.SaveWeights {
			return nil, argumentErrorf("Cannot keep best if saving is not enabled.")
		}
		if cfg.KeepBest && !cfg.Settings.PeriodicValidation {
			return nil, argumentErrorf("Cannot keep best if periodic validation is not enabled.")
		}
		if cfg.Settings.PeriodicValidation && !cfg.Validation {
			return nil, argumentErrorf("Cannot run periodic validation without validation files.")
		}
		if cfg.Settings.Epochs == 0 {
			return nil, argumentErrorf("Number of epochs must be positive.")
		}
		if cfg.Settings.BatchSize == 0 {
			return nil, argumentErrorf("Batch size must be positive.")
		}
		if !validOptimizer(cfg.OptimizerName) {
			return nil, argumentErrorf("Unknown optimizer %q. Choose one of sgd, sgdm, sgdn, adam, adagrad.", cfg.OptimizerName)
		}
		if !validLoss(cfg.LossName) {
			return nil, argumentErrorf("Unknown loss function %q. Choose one of MSE, CE, CEbin.", cfg.LossName)
		}
	}

	return cfg, nil
}

func settingsFromFlags(epochs, batchSize uint, shuffle bool, outputRate uint, periodic bool) cnn.TrainingSettings {
	return cnn.TrainingSettings{
		Epochs:             epochs,
		BatchSize:          batchSize,
		Shuffle:            shuffle,
		ErrorOutputRate:    outputRate,
		PeriodicValidation: periodic,
	}
}

func validOptimizer(name string) bool {
	switch name {
	case "sgd", "sgdm", "sgdn", "adam", "adagrad":
		return true
	}
	return false
}

func validLoss(name string) bool {
	switch name {
	case "MSE", "CE", "CEbin":
		return true
	}
	return false
}

// Usage returns the grouped help text.
func Usage() string {
	var b strings.Builder
	b.WriteString("Usage: typecnn [options]\n")
	b.WriteString("\nCommon:\n")
	b.WriteString("  -h, --help                 print this help and exit\n")
	b.WriteString("  -c, --cnn FILE             network description file (JSON)\n")
	b.WriteString("  -g, --grayscale            treat image inputs as single channel\n")
	b.WriteString("      --type-info            print numeric type properties\n")
	b.WriteString("\nInference:\n")
	b.WriteString("  -i, --input FILE           run inference on a single image\n")
	b.WriteString("\nValidation:\n")
	b.WriteString("  -v, --validate FILES       validation data files (repeatable)\n")
	b.WriteString("      --validate-offset N    skip first N samples of each file\n")
	b.WriteString("      --validate-num N       take at most N samples of each file\n")
	b.WriteString("\nTraining:\n")
	b.WriteString("  -t, --train FILES          training data files (repeatable)\n")
	b.WriteString("      --train-offset N       skip first N samples of each file\n")
	b.WriteString("      --train-num N          take at most N samples of each file\n")
	b.WriteString("  -e, --epochs N             number of epochs (default 10)\n")
	b.WriteString("  -b, --batch-size N         mini-batch size (default 8)\n")
	b.WriteString("  -l, --learning-rate F      learning rate (default 0.01)\n")
	b.WriteString("  -d, --weight-decay F       weight decay (default 0)\n")
	b.WriteString("  -s, --seed N               seed for weight initialization\n")
	b.WriteString("      --optimizer NAME       sgd, sgdm, sgdn, adam or adagrad\n")
	b.WriteString("      --loss-function NAME   MSE, CE or CEbin\n")
	b.WriteString("      --shuffle              shuffle training data every epoch\n")
	b.WriteString("      --periodic-validation  validate after every epoch\n")
	b.WriteString("      --periodic-output N    print average error every N samples\n")
	b.WriteString("      --keep-best            save only strictly better checkpoints\n")
	b.WriteString("      --do-not-load          ignore stored weights, initialize randomly\n")
	b.WriteString("      --do-not-save          do not write the network back to disk\n")
	b.WriteString("      --plot FILE            save a training-curve PNG\n")
	return b.String()
}
