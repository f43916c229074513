package cmd

import (
	"fmt"
	"io"
)

const banner = `
      _       _     _                         _ 
     (_) ___ | |__ | |__   ___   __ _ _ __ __| |
     | |/ _ \| '_ \| '_ \ / _ \ / _` + "`" + ` | '__/ _` + "`" + ` |
     | | (_) | |_) | |_) | (_) | (_| | | | (_| |
    _/ |\___/|_.__/|_.__/ \___/ \__,_|_|  \__,_|
   |__/                                         
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Job board session gateway - Version %s\x1b[0m\n\n", Version)
}
