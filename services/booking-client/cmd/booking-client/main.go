package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/cli"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/validation"
)

func main() {
	ctx, cancel := runtime.SignalContext()
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, field := range slices.Sorted(maps.Keys(verr.Fields)) {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, verr.Fields[field])
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		cancel()
		os.Exit(1)
	}
}
