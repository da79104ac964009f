package main

import (
	"bytes"
	"flag"
	"fmt"
	goimg "image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"envcube/envmap"
	"envcube/libgfx"
	"envcube/libio"
	"envcube/shader"
)

type packArgs struct {
	commonArgs
	sizeImplArgs
	faceExt string
}

func createPackCommand() *command {

	args := packArgs{
		commonArgs: commonArgs{
			ext: ".envcube",
		},
		sizeImplArgs: sizeImplArgs{
			impl: implSw,
			size: size{
				unit:    unitPercent,
				percent: 100,
			},
		},
		faceExt: ".png",
	}

	flags := flag.NewFlagSet("pack", flag.ExitOnError)

	registerCommonFlags(flags, &args.commonArgs)
	registerSizeImplFlag(flags, &args.sizeImplArgs)
	flags.StringVar(&args.faceExt, "face-ext", args.faceExt, "the extension of the px, nx, py, ny, pz and nz face images")

	return &command{
		Name: "pack",
		Help: "pack directories of six face images into cube dumps",
		Run: func(self *command) {
			if self.Flags.NArg() < 1 {
				printCommandUsage(self, " dir-glob...")
			}
			setCommonArgs(&args.commonArgs)

			runPack(args, gatherInputFiles(self.Flags.Args()))
		},
		Flags: flags,
	}
}

func runPack(args packArgs, inputDirs []string) {
	log := logger()
	dev, release := openDevice(args.impl, log)
	defer release()
	programs := shader.NewRepository(dev, shader.RepositoryOptions{Logger: log})
	defer programs.Release()

	ext := cargs.suffix + cargs.ext
	success := 0
	start := time.Now()
	for i, dir := range inputDirs {
		if !cargs.quiet {
			fmt.Printf("Processing directory %d/%d %q ...\n", i+1, len(inputDirs), filepath.ToSlash(filepath.Clean(dir)))
		}
		err := packDir(args, dir, ext, dev, programs, log)
		softerr(err)
		if err == nil {
			success++
		}
	}
	if !cargs.quiet {
		took := float32(time.Since(start).Milliseconds()) / 1000
		fmt.Printf("Packed %d/%d directories in %.3f seconds\n", success, len(inputDirs), took)
	}
}

func packDir(args packArgs, dir string, ext string, dev libgfx.Device, programs *shader.Repository, log *slog.Logger) error {
	fetcher := libio.NewDownloader(os.DirFS(dir), libio.DownloaderOptions{Logger: log})
	defer fetcher.Close()
	src := envmap.CubeMapFaces("", args.faceExt)

	data := fetcher.Load(src.Faces[libgfx.CubeMapPositiveX], libio.KindImage)
	if data == nil {
		return fmt.Errorf("cannot read %s in %s", src.Faces[libgfx.CubeMapPositiveX], dir)
	}
	config, _, err := goimg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}

	size := args.size.Calc(config.Width)
	if size <= 0 {
		return fmt.Errorf("invalid cubemap size %d", size)
	}
	if !cargs.quiet {
		fmt.Printf("Packing %dx%dx6 cubemap ...\n", size, size)
	}

	env := envmap.New(dev, fetcher, programs, src, envmap.Options{Size: size, Logger: log})
	defer env.Release()
	fetcher.Flush()

	if state := env.LoadState(); !env.IsLoaded() {
		for _, face := range libgfx.CubeFaces {
			if !state[face] {
				return fmt.Errorf("face %v (%s) could not be loaded", face, src.Faces[face])
			}
		}
	}

	cube, err := env.Snapshot()
	if err != nil {
		return err
	}
	return writeCube(filepath.Join(cargs.out, filepath.Base(filepath.Clean(dir))+ext), cube)
}
