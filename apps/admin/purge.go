package main

import (
	"context"
	"fmt"
	"time"
)

var nowFunc = time.Now // mockable

// purge deletes reports whose retention window has lapsed.
func (cli *commandLine) purge(days int) error {
	cutoff := nowFunc().AddDate(0, 0, -days)
	n, err := cli.repo.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d report(s) generated before %s\n", n, cutoff.Format("2006-01-02"))
	return nil
}
