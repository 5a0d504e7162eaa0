// Package message prints user-facing status lines. Everything goes to
// stderr by default so stdout only carries command results.
package message

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/praetorian-inc/msinfo/version"
)

var (
	quiet     bool
	noColor   = !isatty.IsTerminal(os.Stderr.Fd())
	silent    bool
	mutex     sync.RWMutex
	outWriter io.Writer = os.Stderr

	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	bannerColor  = color.New(color.FgHiBlue, color.Bold)
	sectionColor = color.New(color.FgHiBlue, color.Bold)
)

const asciiBanner = `
 _ __ ___  ___(_)_ __  / _| ___
| '_ ` + "`" + ` _ \/ __| | '_ \| |_ / _ \
| | | | | \__ \ | | | |  _| (_) |
|_| |_| |_|___/_|_| |_|_|  \___/
`

// SetQuiet suppresses info, success and section output.
func SetQuiet(q bool) {
	mutex.Lock()
	defer mutex.Unlock()
	quiet = q
}

func SetNoColor(nc bool) {
	mutex.Lock()
	defer mutex.Unlock()
	noColor = nc
	color.NoColor = nc
}

// SetSilent suppresses everything except Critical.
func SetSilent(s bool) {
	mutex.Lock()
	defer mutex.Unlock()
	silent = s
}

func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	outWriter = w
}

func enabled(suppressedByQuiet bool) bool {
	mutex.RLock()
	defer mutex.RUnlock()
	if silent {
		return false
	}
	return !(suppressedByQuiet && quiet)
}

func printf(c *color.Color, prefix, format string, args ...any) {
	mutex.RLock()
	defer mutex.RUnlock()

	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(outWriter, "%s%s\n", prefix, msg)
		return
	}
	c.Fprintf(outWriter, "%s%s\n", prefix, msg)
}

func Info(format string, args ...any) {
	if !enabled(true) {
		return
	}
	printf(infoColor, "[*] ", format, args...)
}

func Success(format string, args ...any) {
	if !enabled(true) {
		return
	}
	printf(successColor, "[+] ", format, args...)
}

// Warning is shown in quiet mode but not in silent mode.
func Warning(format string, args ...any) {
	if !enabled(false) {
		return
	}
	printf(warningColor, "[!] ", format, args...)
}

func Error(format string, args ...any) {
	if !enabled(false) {
		return
	}
	printf(errorColor, "[-] ", format, args...)
}

// Critical is never suppressed.
func Critical(format string, args ...any) {
	printf(errorColor, "[!!] ", format, args...)
}

func Emphasize(s string) string {
	mutex.RLock()
	defer mutex.RUnlock()
	if noColor {
		return s
	}
	return color.New(color.Bold).Sprint(s)
}

func Section(format string, args ...any) {
	if !enabled(true) {
		return
	}

	mutex.RLock()
	defer mutex.RUnlock()

	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(outWriter, "\n-=[%s]=-\n\n", msg)
		return
	}
	sectionColor.Fprintf(outWriter, "\n-=[%s]=-\n\n", msg)
}

func Banner() {
	if !enabled(true) {
		return
	}

	mutex.RLock()
	defer mutex.RUnlock()

	if noColor {
		fmt.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
		return
	}
	bannerColor.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
}
