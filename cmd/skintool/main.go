// skintool loads a skinned rig, plays its animation and writes posed frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/export"
	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/pkg/armature"
)

var (
	flagTicks = flag.Int("ticks", 0, "Ticks to run before printing or exporting")
	flagDump  = flag.Bool("dump", false, "Dump full bone state instead of a table")
)

func main() {
	config.ParseFlags()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	switch cmd := flag.Arg(0); cmd {
	case "info":
		err = cmdInfo(cfg)
	case "pose":
		err = cmdPose(cfg)
	case "export":
		err = cmdExport(cfg)
	case "watch":
		err = cmdWatch(cfg)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skintool - skeletal animation and skinning utility

Usage:
  skintool [flags] <command>

Commands:
  info     Show bones, keyframe ranges and meshes of the configured rig
  pose     Run -ticks ticks and print every bone's final transform
  export   Run -ticks ticks and write the posed frame as binary glTF (-out)
  watch    Re-export whenever a rig file changes, until interrupted

Flags:
  -config <file>   Config file (default ./config.yaml)
  -progress <n>    Frames advanced per tick
  -ticks <n>       Ticks to run first
  -static          Ignore keyframes
  -parallel        Deform meshes concurrently
  -out <file>      Output path for export and watch
  -rest            Also export bone models in the rest pose
  -dump            Dump full bone state in pose
  -debug           Debug logging

Examples:
  skintool -config rigs/walk.yaml info
  skintool -ticks 12 pose
  skintool -ticks 30 -out frame30.glb export`)
}

func loadRig(cfg *config.Config) (*rig.Rig, error) {
	r, err := rig.Load(cfg.Data, cfg.Animation)
	if err != nil {
		return nil, err
	}
	for i := 0; i < *flagTicks; i++ {
		if err := r.Step(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func cmdInfo(cfg *config.Config) error {
	r, err := rig.Load(cfg.Data, cfg.Animation)
	if err != nil {
		return err
	}
	arm := r.Armature()

	fmt.Printf("Armature: %s\n", cfg.Data.Armature)
	fmt.Printf("Bones:    %d\n", arm.NumBones())
	fmt.Printf("Animated: %v\n", arm.Animated())
	fmt.Printf("Frames:   %.2f - %.2f (%.2f per tick)\n", armature.StartFrame, arm.LastFrame(), r.Progress())
	fmt.Println()

	fmt.Printf("  %-3s %-20s %-20s %-6s %s\n", "ID", "Name", "Parent", "Size", "Keys")
	for _, id := range arm.EvalOrder() {
		b := arm.Bone(id)
		parent := "-"
		if !b.IsRoot() {
			parent = arm.Bone(b.Parent).Name
		}
		fmt.Printf("  %-3d %-20s %-20s %-6.3f %d\n", b.ID, b.Name, parent, b.Size, len(b.Frames))
	}

	if len(r.Meshes()) > 0 {
		fmt.Println()
		fmt.Println("Meshes:")
		for _, m := range r.Meshes() {
			fmt.Printf("  %-20s %6d triangles %6d vertices skinned=%v\n",
				m.Name, m.NumTriangles(), len(m.SkinVertices()), m.Bound())
		}
	}
	return nil
}

func cmdPose(cfg *config.Config) error {
	r, err := loadRig(cfg)
	if err != nil {
		return err
	}
	arm := r.Armature()

	if *flagDump {
		spew.Dump(arm.Bones())
		return nil
	}

	fmt.Printf("Frame %.2f after %d ticks\n\n", r.Frame(), r.Ticks())
	fmt.Printf("  %-20s %-36s %s\n", "Bone", "Rotation (w x y z)", "Position")
	for i, p := range r.Pose() {
		q := p.Orient
		fmt.Printf("  %-20s % .4f % .4f % .4f % .4f   % .4f % .4f % .4f\n",
			arm.Bone(i).Name, q.W, q.X, q.Y, q.Z, p.Pos.X, p.Pos.Y, p.Pos.Z)
	}
	return nil
}

func cmdExport(cfg *config.Config) error {
	r, err := loadRig(cfg)
	if err != nil {
		return err
	}
	return writeFrame(r, cfg.Export)
}

func writeFrame(r *rig.Rig, out config.ExportConfig) error {
	path := out.Output
	doc, err := export.GLTF(r, export.Options{RestBones: out.RestBones})
	if err != nil {
		return err
	}
	if err := export.SaveGLB(path, doc); err != nil {
		return err
	}
	logger.Info("frame exported",
		zap.String("path", path),
		zap.Float32("frame", r.Frame()),
		zap.Int("nodes", len(doc.Nodes)),
	)
	return nil
}

func cmdWatch(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r, err := loadRig(cfg); err != nil {
		logger.Warn("initial load failed, waiting for changes", zap.Error(err))
	} else if err := writeFrame(r, cfg.Export); err != nil {
		return err
	}

	return rig.Watch(ctx, cfg, func(r *rig.Rig) {
		for i := 0; i < *flagTicks; i++ {
			if err := r.Step(); err != nil {
				logger.Error("tick failed", zap.Error(err))
				return
			}
		}
		if err := writeFrame(r, cfg.Export); err != nil {
			logger.Error("export failed", zap.Error(err))
		}
	})
}
