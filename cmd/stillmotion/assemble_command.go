package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stillmotion/internal/assemble"
	"stillmotion/internal/encode"
	"stillmotion/internal/media/metadata"
	"stillmotion/internal/units"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	var (
		fps       float64
		height    int
		quality   int
		limit     int
		codec     string
		container string
		sortKey   string
		speed     float64
		reverse   bool
		overwrite bool
		filters   []string
		options   []string
	)

	cmd := &cobra.Command{
		Use:   "assemble <source>... <destination>",
		Short: "Assemble image files into a time-lapse video",
		Long: `Assemble scans the source paths for image files, orders them, and encodes
them frame by frame into the destination video. With --speed each frame is
placed at its capture time scaled by the factor; otherwise frames are spaced
evenly at the output frame rate.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("%w: expected one or more sources and a destination", assemble.ErrUsage)
			}
			sources, destination := args[:len(args)-1], args[len(args)-1]

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			filterSpec, err := parseFilters(filters)
			if err != nil {
				return err
			}
			optionMap, err := parseOptions(options)
			if err != nil {
				return err
			}

			summary, err := assemble.Run(cmd.Context(), cfg, logger, assemble.Request{
				Sources:     sources,
				Destination: destination,
				Codec:       codec,
				Container:   container,
				FrameRate:   fps,
				Height:      height,
				Quality:     quality,
				SortKey:     sortKey,
				Reverse:     reverse,
				Speed:       speed,
				Limit:       limit,
				Filters:     filterSpec,
				Options:     optionMap,
				Overwrite:   overwrite,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Destination", summary.Destination},
					{"Frames encoded", strconv.Itoa(summary.Counters.Encoded)},
					{"Frame rate", fmt.Sprintf("%g fps", summary.FrameRate)},
					{"Duration", summary.Duration.Round(time.Millisecond).String()},
					{"Output size", humanize.Bytes(uint64(summary.OutputBytes))},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d discovered, %d filtered out, %d encoded\n",
				summary.Counters.Discovered, summary.Counters.FilteredOut, summary.Counters.Encoded)
			return nil
		},
	}

	cmd.Flags().Float64Var(&fps, "fps", 0, "Output frame rate (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Scale output to this height, preserving aspect ratio")
	cmd.Flags().IntVar(&quality, "quality", 0, "JPEG quality 1-100 (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Encode at most this many frames")
	cmd.Flags().StringVar(&codec, "codec", "", "Video codec (default from config)")
	cmd.Flags().StringVar(&container, "container", "", "Output container (default from config)")
	cmd.Flags().StringVar(&sortKey, "sort", "", "Sort key: name or creation (default from config)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Real-time speed factor; 2 plays the captured interval twice as fast")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "Reverse the final frame order")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the destination if it exists")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Keep only files whose metadata matches key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "Compression option key=value; values take unit suffixes (repeatable)")

	return cmd
}

func parseFilters(args []string) (metadata.FilterSpec, error) {
	if len(args) == 0 {
		return nil, nil
	}
	spec := make(metadata.FilterSpec, len(args))
	for _, arg := range args {
		key, value, ok := metadata.ParseFilterArg(arg)
		if !ok {
			return nil, fmt.Errorf("%w: filter %q is not key=value", assemble.ErrUsage, arg)
		}
		spec[key] = value
	}
	return spec, nil
}

func parseOptions(args []string) (encode.OptionMap, error) {
	if len(args) == 0 {
		return nil, nil
	}
	options := encode.OptionMap{}
	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)
		if !found || key == "" || raw == "" {
			return nil, fmt.Errorf("%w: option %q is not key=value", assemble.ErrUsage, arg)
		}
		value, err := parseOptionValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: option %s: %v", assemble.ErrUsage, key, err)
		}
		options.Set(key, value)
	}
	return options, nil
}

// parseOptionValue types a raw flag value: booleans and plain numbers first,
// then the unit grammar (rates, bit quantities, durations), and anything
// left is an enumerated string for the engine to judge.
func parseOptionValue(raw string) (encode.OptionValue, error) {
	switch raw {
	case "true":
		return encode.BoolOption(true), nil
	case "false":
		return encode.BoolOption(false), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return encode.IntOption(i), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return encode.RealOption(f), nil
	}
	if strings.ContainsRune(raw, '/') {
		rate, err := units.ParseBitRate(raw)
		if err != nil {
			return encode.OptionValue{}, err
		}
		return encode.RateOption(rate), nil
	}
	if bits, err := units.ParseBitQuantity(raw); err == nil {
		return encode.RealOption(bits), nil
	}
	if seconds, err := units.ParseSeconds(raw); err == nil {
		return encode.RealOption(seconds), nil
	}
	return encode.EnumOption(raw), nil
}
