package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/relieflab/reliefd/internal/channel"
	"github.com/relieflab/reliefd/internal/convert"
	"github.com/relieflab/reliefd/internal/logging"
)

type cliOptions struct {
	imagePath string
	stlPath   string
	addr      string
	timeout   time.Duration
	opts      convert.Options
}

func main() {
	defaults := convert.DefaultOptions()

	var cli cliOptions
	flag.StringVar(&cli.imagePath, "image", "", "path to the source image (png, jpeg, or gif)")
	flag.StringVar(&cli.stlPath, "stl", "", "path the STL file is written to")
	flag.StringVar(&cli.addr, "addr", "", "daemon address; empty converts locally")
	flag.DurationVar(&cli.timeout, "timeout", time.Minute, "remote request timeout")
	flag.IntVar(&cli.opts.Size, "size", defaults.Size, "resize the image to size x size pixels")
	flag.Float64Var(&cli.opts.Scale, "scale", defaults.Scale, "height scale applied to pixel intensity")
	flag.IntVar(&cli.opts.Border, "border", defaults.Border, "white border width for negative prints")
	flag.BoolVar(&cli.opts.Negative, "negative", defaults.Negative, "raise the light areas instead of the dark ones")
	flag.BoolVar(&cli.opts.Smooth, "smooth", defaults.Smooth, "gaussian-smooth the surface before extrusion")
	flag.BoolVar(&cli.opts.Base, "base", defaults.Base, "close the mesh with a base plate and walls")
	flag.Parse()

	if cli.imagePath == "" || cli.stlPath == "" {
		fmt.Fprintln(os.Stderr, "reliefctl: -image and -stl are required")
		flag.Usage()
		os.Exit(2)
	}

	logging.ConfigureCLI()

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "reliefctl:", err)
		os.Exit(1)
	}
}

func run(cli cliOptions) error {
	if cli.addr == "" {
		return runLocal(cli)
	}
	return runRemote(cli)
}

func runLocal(cli cliOptions) error {
	data, err := os.ReadFile(cli.imagePath)
	if err != nil {
		return err
	}
	out, err := convert.Run(convert.Job{
		ImageData:  data,
		OutputPath: cli.stlPath,
		Options:    cli.opts,
	})
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runRemote(cli cliOptions) error {
	payload, err := encodeRequest(cli)
	if err != nil {
		return err
	}

	client, err := channel.NewClient(channel.ClientConfig{
		Address:            cli.addr,
		ConnectTimeout:     5 * time.Second,
		ReadTimeout:        cli.timeout,
		WriteTimeout:       15 * time.Second,
		MaxConnectAttempts: 3,
		Backoff:            channel.DefaultBackoffConfig(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cli.timeout)
	defer cancel()

	session, err := client.Connect(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Submit(ctx, payload); err != nil {
		return err
	}
	result, err := session.AwaitResult(ctx)
	if err != nil {
		return err
	}
	if err := session.End(); err != nil {
		return err
	}

	fmt.Println(result)
	return nil
}

// encodeRequest builds the JSON request payload with the image embedded as a
// base64 data URI.
func encodeRequest(cli cliOptions) (string, error) {
	data, err := os.ReadFile(cli.imagePath)
	if err != nil {
		return "", err
	}

	mediaType := mime.TypeByExtension(filepath.Ext(cli.imagePath))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

	payload, err := json.Marshal(map[string]any{
		"image":    uri,
		"stl":      cli.stlPath,
		"scale":    cli.opts.Scale,
		"size":     cli.opts.Size,
		"border":   cli.opts.Border,
		"negative": cli.opts.Negative,
		"smooth":   cli.opts.Smooth,
		"base":     cli.opts.Base,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
