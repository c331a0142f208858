//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/fsys"
	"github.com/sovelma/kernel/process"
	"github.com/sovelma/kernel/syncx"
	"github.com/sovelma/kernel/task"
	"github.com/sovelma/kernel/wasmhost"

	systemd "github.com/coreos/go-systemd/daemon"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	kernelRunDir string = "/run/sovelma-kernel"
	kernelPidFile string = kernelRunDir + "/kernel.pid"
	usage         string = `sovelma-kernel

sovelma-kernel hosts WASM guest processes under a capability-based
security model: every guest starts with no ambient authority and only
the capabilities its spawner explicitly grants it, and is driven to
completion cooperatively by a priority executor that charges both
wall-clock and host-operation fuel.
`
)

// Globals to be populated at build time during Makefile processing.
var (
	edition  string
	version  string
	commitId string
	builtAt  string
	builtBy  string
)

//
// sovelma-kernel exit handler goroutine.
//
func exitHandler(
	signalChan chan os.Signal,
	engine *wasmhost.Engine,
	prof interface{ Stop() }) {

	var printStack = false

	s := <-signalChan

	logrus.Warnf("sovelma-kernel caught signal: %s", s)

	logrus.Info("Stopping (gracefully) ...")

	systemd.SdNotify(false, systemd.SdNotifyStopping)

	switch s {
	case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGSEGV:
		printStack = true
	}

	if printStack {
		stacktrace := make([]byte, 32768)
		length := runtime.Stack(stacktrace, true)
		logrus.Warnf("\n\n%s\n", string(stacktrace[:length]))
	}

	if err := engine.Close(context.Background()); err != nil {
		logrus.Warnf("error closing engine: %v", err)
	}

	if prof != nil {
		prof.Stop()
	}

	if err := destroyPidFile(kernelPidFile); err != nil {
		logrus.Warnf("failed to destroy pid file: %v", err)
	}

	logrus.Info("Exiting ...")
	os.Exit(0)
}

// Run cpu / memory profiling collection.
func runProfiler(ctx *cli.Context) (interface{ Stop() }, error) {

	var prof interface{ Stop() }

	cpuProfOn := ctx.Bool("cpu-profiling")
	memProfOn := ctx.Bool("memory-profiling")

	if cpuProfOn && memProfOn {
		return nil, fmt.Errorf("unsupported parameter combination: cpu and memory profiling")
	}

	if !(cpuProfOn || memProfOn) {
		return nil, nil
	}

	// NoShutdownHook: our own signal handler stops profiling, not pprof's.
	if cpuProfOn {
		prof = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath("."),
			profile.NoShutdownHook,
		)
	}

	if memProfOn {
		prof = profile.Start(
			profile.MemProfile,
			profile.ProfilePath("."),
			profile.NoShutdownHook,
		)
	}

	return prof, nil
}

func setupRunDir() error {
	if err := os.MkdirAll(kernelRunDir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %s", kernelRunDir, err)
	}
	return nil
}

// createPidFile and destroyPidFile replace the dropped sysbox-libs/utils
// pid-file helpers with a direct equivalent; no library in the retained
// stack covers this narrow a concern.
func createPidFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

func destroyPidFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

//
// sovelma-kernel main function
//
func main() {

	app := cli.NewApp()
	app.Name = "sovelma-kernel"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "module",
			Usage: "path to the WASM module to spawn",
		},
		cli.StringFlag{
			Name:  "entry",
			Value: "_start",
			Usage: "exported function to drive as the initial task",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path or empty string for stderr output (default: \"\")",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format; must be json or text",
		},
		cli.IntFlag{
			Name:  "host-fuel-slice",
			Value: int(wasmhost.DefaultFuelConfig.SliceSize),
			Usage: "host-operation fuel granted per scheduling slice",
		},
		cli.IntFlag{
			Name:  "host-fuel-threshold",
			Value: int(wasmhost.DefaultFuelConfig.Threshold),
			Usage: "host-operation fuel floor below which a guest yields",
		},
		cli.DurationFlag{
			Name:  "poll-slice",
			Value: wasmhost.DefaultFuelConfig.PollSlice,
			Usage: "wall-clock budget granted per scheduling poll (engine-fuel emulation)",
		},
		cli.BoolFlag{
			Name:   "cpu-profiling",
			Usage:  "enable cpu-profiling data collection",
			Hidden: true,
		},
		cli.BoolFlag{
			Name:   "memory-profiling",
			Usage:  "enable memory-profiling data collection",
			Hidden: true,
		},
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("sovelma-kernel\n"+
			"\tedition: \t%s\n"+
			"\tversion: \t%s\n"+
			"\tcommit: \t%s\n"+
			"\tbuilt at: \t%s\n"+
			"\tbuilt by: \t%s\n",
			edition, c.App.Version, commitId, builtAt, builtBy)
	}

	app.Before = func(ctx *cli.Context) error {

		rand.Seed(time.Now().UnixNano())

		if path := ctx.GlobalString("log"); path != "" {
			f, err := os.OpenFile(
				path,
				os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC,
				0666,
			)
			if err != nil {
				logrus.Fatalf("Error opening log file %v: %v. Exiting ...", path, err)
				return err
			}

			logrus.SetOutput(f)
			log.SetOutput(f)
		} else {
			logrus.SetOutput(os.Stderr)
			log.SetOutput(os.Stderr)
		}

		if logFormat := ctx.GlobalString("log-format"); logFormat == "json" {
			logrus.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
			})
		} else {
			logrus.SetFormatter(&logrus.TextFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
				FullTimestamp:   true,
			})
		}

		if logLevel := ctx.GlobalString("log-level"); logLevel != "" {
			switch logLevel {
			case "debug":
				flag.Set("wasm.debug", "true")
				logrus.SetLevel(logrus.DebugLevel)
			case "info":
				logrus.SetLevel(logrus.InfoLevel)
			case "warning":
				logrus.SetLevel(logrus.WarnLevel)
			case "error":
				logrus.SetLevel(logrus.ErrorLevel)
			case "fatal":
				logrus.SetLevel(logrus.FatalLevel)
			default:
				logrus.Fatalf("log-level option '%v' not recognized. Exiting ...", logLevel)
			}
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}

		return nil
	}

	// sovelma-kernel main-loop execution.
	app.Action = func(ctx *cli.Context) error {

		logrus.Info("Initiating sovelma-kernel ...")

		modulePath := ctx.String("module")
		if modulePath == "" {
			return fmt.Errorf("--module is required")
		}

		if err := setupRunDir(); err != nil {
			return fmt.Errorf("failed to setup run dir: %v", err)
		}

		wasmBytes, err := os.ReadFile(modulePath)
		if err != nil {
			return fmt.Errorf("failed to read module %s: %v", modulePath, err)
		}

		fuelCfg := wasmhost.FuelConfig{
			SliceSize: uint64(ctx.Int("host-fuel-slice")),
			Threshold: uint64(ctx.Int("host-fuel-threshold")),
			PollSlice: ctx.Duration("poll-slice"),
		}

		bg := context.Background()
		engine, err := wasmhost.NewEngine(bg, fuelCfg)
		if err != nil {
			return fmt.Errorf("failed to start engine: %v", err)
		}

		fsTree := fsys.New()
		syncReg := syncx.NewRegistry()

		initialCaps := []process.InitialCapability{
			{
				Object: domain.CapabilityObject{Kind: domain.ObjectDirectory, Handle: uint64(uint32(fsTree.Root()))},
				Rights: domain.RightRead | domain.RightWrite | domain.RightExecute,
			},
		}

		proc, err := process.Spawn(bg, engine, wasmBytes, fsTree, syncReg, initialCaps)
		if err != nil {
			engine.Close(bg)
			return fmt.Errorf("failed to spawn module: %v", err)
		}

		executor := task.NewExecutor()
		entry := ctx.String("entry")
		_, ok := proc.SpawnAsTask(executor, entry, task.Normal)
		if !ok {
			engine.Close(bg)
			return fmt.Errorf("executor queue full: could not schedule %s", entry)
		}

		prof, err := runProfiler(ctx)
		if err != nil {
			logrus.Fatal(err)
		}

		exitChan := make(chan os.Signal, 1)
		signal.Notify(
			exitChan,
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGSEGV,
			syscall.SIGQUIT)
		go exitHandler(exitChan, engine, prof)

		systemd.SdNotify(false, systemd.SdNotifyReady)

		if err := createPidFile(kernelPidFile); err != nil {
			return fmt.Errorf("failed to create pid file: %s", err)
		}

		logrus.Info("Ready ...")

		// No stop signal is ever sent here: exitHandler terminates the
		// process directly on a caught signal, mirroring how the original
		// blocked its main goroutine on ipcService.Init() until exit.
		executor.Run(nil)

		if err := destroyPidFile(kernelPidFile); err != nil {
			logrus.Warnf("failed to destroy pid file: %v", err)
		}

		if err := proc.LastError(); err != nil {
			logrus.Errorf("module %s exited with error: %v", entry, err)
		}

		logrus.Info("Done.")
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
