// Command poolctl checks pool partitions and rule windows offline.
//
//	poolctl check partition.yaml
//	poolctl clip --rule-start 2024-01-05 --start 2024-01-01 --end 2024-01-31
//	poolctl version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
