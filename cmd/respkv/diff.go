package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// maxListedKeys caps how many differing keys are printed per category
const maxListedKeys = 10

// KeyspaceInfo maps every key matching a pattern to its type name
type KeyspaceInfo map[string]string

// Counts returns the number of keys per type
func (k KeyspaceInfo) Counts() map[string]int {
	counts := make(map[string]int)
	for _, typ := range k {
		counts[typ]++
	}
	return counts
}

func newDiffCmd() *cobra.Command {
	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the keyspace of two servers",
		Long: `Compare the keys and key types of a reference server with a system under
test. Both endpoints only need to speak RESP, so a respkv node can be checked
against a Redis server that received the same writes.`,
		Example: "  respkv diff --ref localhost:6379 --sut localhost:6380 --match 'user:*'",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindFlags(cmd) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
			defer cancel()

			refAddr, sutAddr := viper.GetString("ref"), viper.GetString("sut")
			pattern := viper.GetString("match")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Comparing keyspace information:\n")
			fmt.Fprintf(out, "  Reference: %s\n", refAddr)
			fmt.Fprintf(out, "  System:    %s\n", sutAddr)
			fmt.Fprintf(out, "  Pattern:   %s\n\n", pattern)

			ref, err := fetchKeyspace(ctx, refAddr, pattern)
			if err != nil {
				return fmt.Errorf("reference %s: %w", refAddr, err)
			}
			sut, err := fetchKeyspace(ctx, sutAddr, pattern)
			if err != nil {
				return fmt.Errorf("system %s: %w", sutAddr, err)
			}

			if n := compareKeyspaces(out, ref, sut); n > 0 {
				return fmt.Errorf("%d differences found", n)
			}
			return nil
		},
	}

	key := "ref"
	diffCmd.Flags().String(key, "localhost:6379", usage("Reference server endpoint (host:port)"))

	key = "sut"
	diffCmd.Flags().String(key, "localhost:6380", usage("System under test endpoint (host:port)"))

	key = "match"
	diffCmd.Flags().String(key, "*", usage("Only compare keys matching this glob pattern"))

	key = "timeout"
	diffCmd.Flags().Duration(key, defaultTimeout, usage("Timeout for the whole comparison"))

	return diffCmd
}

// fetchKeyspace lists the keys matching pattern and pipelines a TYPE
// lookup for each of them
func fetchKeyspace(ctx context.Context, addr, pattern string) (KeyspaceInfo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Protocol:        2,
		DisableIdentity: true,
		MaxRetries:      -1,
	})
	defer func() { _ = client.Close() }()

	keys, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}

	info := make(KeyspaceInfo, len(keys))
	if len(keys) == 0 {
		return info, nil
	}

	cmds := make([]*redis.StatusCmd, len(keys))
	_, err = client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.Type(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, key := range keys {
		typ := cmds[i].Val()
		if typ == "none" {
			continue // deleted between KEYS and TYPE
		}
		info[key] = typ
	}
	return info, nil
}

// compareKeyspaces prints the differences between ref and sut and returns
// how many were found
func compareKeyspaces(w io.Writer, ref, sut KeyspaceInfo) int {
	differences := 0

	fmt.Fprintln(w, "Type Comparison Results:")
	fmt.Fprintln(w, "========================")

	refCounts, sutCounts := ref.Counts(), sut.Counts()
	types := make(map[string]struct{})
	for typ := range refCounts {
		types[typ] = struct{}{}
	}
	for typ := range sutCounts {
		types[typ] = struct{}{}
	}

	for _, typ := range slices.Sorted(maps.Keys(types)) {
		if refCounts[typ] == sutCounts[typ] {
			fmt.Fprintf(w, "  ✅ %-6s keys=%d\n", typ, refCounts[typ])
			continue
		}
		fmt.Fprintf(w, "  ❌ %-6s REF=%d, SUT=%d\n", typ, refCounts[typ], sutCounts[typ])
	}

	var missing, extra, mismatched []string
	for key, typ := range ref {
		other, ok := sut[key]
		switch {
		case !ok:
			missing = append(missing, key)
		case other != typ:
			mismatched = append(mismatched, fmt.Sprintf("%s (REF=%s, SUT=%s)", key, typ, other))
		}
	}
	for key := range sut {
		if _, ok := ref[key]; !ok {
			extra = append(extra, key)
		}
	}

	differences += printKeys(w, "Missing in SYSTEM", missing)
	differences += printKeys(w, "Missing in REFERENCE", extra)
	differences += printKeys(w, "Type differs", mismatched)

	fmt.Fprintln(w)
	if differences == 0 {
		fmt.Fprintf(w, "🎉 SUCCESS: %d keys match\n", len(ref))
	} else {
		fmt.Fprintf(w, "❌ FAILURE: %d differences found\n", differences)
	}
	return differences
}

func printKeys(w io.Writer, title string, keys []string) int {
	if len(keys) == 0 {
		return 0
	}
	slices.Sort(keys)

	fmt.Fprintf(w, "\n%s (%d):\n", title, len(keys))
	for i, key := range keys {
		if i == maxListedKeys {
			fmt.Fprintf(w, "  ... and %d more\n", len(keys)-maxListedKeys)
			break
		}
		fmt.Fprintf(w, "  %s\n", key)
	}
	return len(keys)
}
