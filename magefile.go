//go:build mage

package main

import (
	"os"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var binDir = "bin"

var Default = Build

func Build() error {
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	if err := sh.RunV("go", "build", "-o", binDir+"/clipmirror"+ext, "./cmd/clipmirror"); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		if err := sh.RunV("go", "build", "-ldflags", "-H=windowsgui", "-o", binDir+"/server"+ext, "./cmd/server"); err != nil {
			return err
		}
	}
	return nil
}

func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Check formats, vets and tests the tree.
func Check() {
	mg.SerialDeps(Format, Vet, Test)
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

func Clean() error {
	return sh.Rm(binDir)
}

func Format() error {
	return sh.RunV("go", "fmt", "./...")
}
