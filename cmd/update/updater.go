package update

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/fatih/color"
	"github.com/opsforge/infragen/internal/build_info"
	"golang.org/x/sys/unix"
)

const (
	slug = "opsforge/infragen"
)

type UpdaterOpts struct {
	Force     bool
	CheckOnly bool
}

type Updater struct {
	opts           UpdaterOpts
	currentVersion string
	in             io.Reader
}

func NewUpdater(opts UpdaterOpts) *Updater {
	return &Updater{
		opts:           opts,
		currentVersion: build_info.Version,
		in:             os.Stdin,
	}
}

func (u *Updater) isDevBuild() bool {
	return u.currentVersion == "" || u.currentVersion == build_info.DefaultDevVersion
}

func (u *Updater) Run(ctx context.Context) error {
	if u.isDevBuild() && !u.opts.Force {
		slog.Info("🤖 development version detected, skipping update check. Use `--force` to install the latest release.")
		return nil
	}

	exePath, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	if err := verifyWritePermissions(exePath); err != nil {
		commandStr := "sudo infragen " + strings.Join(os.Args[1:], " ")
		return fmt.Errorf("infragen is installed at a location that requires sudo privileges\nPlease try - %s", color.GreenString(commandStr))
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(slug))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s/%s could not be found from github repository", runtime.GOOS, runtime.GOARCH)
	}

	if latest.LessOrEqual(u.currentVersion) {
		slog.Info(fmt.Sprintf("✅ installed version (%s) is already the latest available", u.currentVersion))
		return nil
	}

	slog.Info(fmt.Sprintf("🎉 new version available: %s", latest.Version()))

	if u.opts.CheckOnly {
		slog.Info(fmt.Sprintf("💡 update available from %s to %s. Run without --check-only to update.", u.currentVersion, latest.Version()))
		return nil
	}

	if !u.opts.Force && !u.askForConfirmation("🤔 Do you want to update now? (y/N): ") {
		slog.Warn("🚫 update aborted")
		return nil
	}

	slog.Info(fmt.Sprintf("🚀 updating from %s --> %s", u.currentVersion, latest.Version()))

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exePath); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	slog.Info(fmt.Sprintf("✅ successfully updated infragen to %s", latest.Version()))

	return nil
}

// linux/macOS only
func verifyWritePermissions(path string) error {
	dir := filepath.Dir(path)
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("insufficient permissions: directory %s is not writable", dir)
	}
	return nil
}

func (u *Updater) askForConfirmation(prompt string) bool {
	fmt.Print(prompt)
	response, err := bufio.NewReader(u.in).ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes"
}
