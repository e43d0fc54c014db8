// Package main provides a Dagger module for building and deploying Warden.
//
// The module is designed to be used with the Dagger CLI or SDKs to automate
// build and deployment workflows.
package main

import (
	"context"
	"dagger/warden/internal/dagger"
	"fmt"
	"strings"
)

type Warden struct{}

// BuildContainer creates a container image for the project.
func (m *Warden) BuildContainer(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Platform to build for
	// +optional
	// +default="linux/amd64"
	platform *dagger.Platform,
) (*dagger.Container, error) {
	// Use default platform if none specified
	buildPlatform := dagger.Platform("linux/amd64")
	if platform != nil {
		buildPlatform = *platform
	}

	// Get architecture using containerd utility
	platformArch, err := dag.Containerd().ArchitectureOf(ctx, buildPlatform)
	if err != nil {
		return nil, fmt.Errorf("failed to get architecture: %w", err)
	}

	// Create build container
	buildCtr := dag.Container().
		From("golang:1.24.2-alpine").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", src).
		WithWorkdir("/src").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("GOOS", "linux").
		WithEnvVariable("GOARCH", platformArch)

	// Install build dependencies
	buildCtr = buildCtr.WithExec([]string{"apk", "add", "--no-cache", "upx", "ca-certificates"})

	// Create necessary directories
	buildCtr = buildCtr.
		WithExec([]string{"mkdir", "-p", "/src/bin"}).
		WithExec([]string{"mkdir", "-p", "/src/logs"})

	// Build and compress the binary
	buildCtr = buildCtr.
		WithExec([]string{"go", "build", "-ldflags=-s -w", "-o", "/src/bin/warden", "./cmd/bot"}).
		WithExec([]string{"upx", "--best", "--lzma", "/src/bin/warden"})

	// Create final container
	return dag.Container(dagger.ContainerOpts{Platform: buildPlatform}).
		From("gcr.io/distroless/static-debian12:latest").
		WithDirectory("/app/bin", buildCtr.Directory("/src/bin")).
		WithDirectory("/app/logs", buildCtr.Directory("/src/logs")).
		WithFile("/etc/ssl/certs/ca-certificates.crt", buildCtr.File("/etc/ssl/certs/ca-certificates.crt")).
		WithWorkdir("/app").
		WithEntrypoint([]string{"/app/bin/warden"}).
		WithDefaultArgs([]string{"run"}), nil
}

// Publish the application container after building and testing it.
func (m *Warden) Publish(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Docker image name (e.g. "username/repo:tag")
	// +required
	imageName string,
	// Platforms to build for (comma-separated, e.g. "linux/amd64,linux/arm64")
	// +optional
	// +default="linux/amd64"
	platforms string,
) (string, error) {
	// Parse platforms string
	var platformList []dagger.Platform
	if platforms == "" {
		platformList = []dagger.Platform{"linux/amd64"}
	} else {
		for _, p := range strings.Split(platforms, ",") {
			platformList = append(platformList, dagger.Platform(strings.TrimSpace(p)))
		}
	}

	// Build containers for each platform
	platformVariants := make([]*dagger.Container, 0, len(platformList))
	for _, platform := range platformList {
		container, err := m.BuildContainer(ctx, src, &platform)
		if err != nil {
			return "", fmt.Errorf("failed to build container for %s: %w", platform, err)
		}
		platformVariants = append(platformVariants, container)
	}

	// Publish multi-arch image
	ref, err := dag.Container().Publish(ctx, imageName, dagger.ContainerPublishOpts{
		PlatformVariants: platformVariants,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish image: %w", err)
	}

	return ref, nil
}

// Run the bot, or one of its migration commands, against a config directory.
func (m *Warden) Run(
	ctx context.Context,
	// Source code directory
	// +required
	src *dagger.Directory,
	// Config directory containing bot.toml
	// +required
	configDir *dagger.Directory,
	// Command to run: "run", "migrate", "rollback" or "status"
	// +optional
	// +default="run"
	cmd string,
	// Apply pending migrations before starting the bot
	// +optional
	autoMigrate bool,
) *dagger.Container {
	if cmd == "" {
		cmd = "run"
	}

	// Create run container
	runCtr := dag.Container().
		From("golang:1.24.2-alpine").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithDirectory("/src", src).
		WithDirectory("/etc/warden", configDir).
		WithWorkdir("/src").
		WithEnvVariable("CGO_ENABLED", "0")

	// Install dependencies
	runCtr = runCtr.WithExec([]string{"apk", "add", "--no-cache", "ca-certificates"})

	// Build the program
	runCtr = runCtr.WithExec([]string{"go", "build", "-o", "/src/bin/warden", "./cmd/bot"})

	args := []string{"/src/bin/warden", cmd}
	if cmd == "run" && autoMigrate {
		args = append(args, "--auto-migrate")
	}

	return runCtr.WithExec(args)
}
