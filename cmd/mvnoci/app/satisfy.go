package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/mvnoci/mvnoci/internal/cache"
	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/internal/registry"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

var satisfyCmd = &cobra.Command{
	Use:   "satisfy COORDINATE...",
	Short: "Prefetch artifacts into the persistent cache",
	Long: `Resolve each coordinate against the configured repositories and store the
pulled artifact bundles in the persistent cache. Coordinates use the form
group:artifact:version:extension or group:artifact:version:classifier:extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSatisfy,
}

// satisfyConcurrency bounds how many coordinates resolve at once.
const satisfyConcurrency = 4

func runSatisfy(cmd *cobra.Command, args []string) error {
	logger.Initialize(viper.GetBool("debug"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cacheDir, err := cfg.EffectiveCacheDir()
	if err != nil {
		return err
	}

	wanted := make([]*coords.Coordinate, 0, len(args))
	for _, arg := range args {
		c, err := parseCoordinate(arg)
		if err != nil {
			return err
		}
		wanted = append(wanted, c)
	}

	type target struct {
		resolver *registry.Resolver
		store    *cache.Cache
		name     string
	}
	targets := make([]target, 0, len(cfg.Repositories))
	for _, repo := range cfg.Repositories {
		store, err := cache.New(cacheDir, repo.URL)
		if err != nil {
			return err
		}
		targets = append(targets, target{
			resolver: registry.NewResolver(repo),
			store:    store,
			name:     repo.Name,
		})
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(satisfyConcurrency)

	for _, c := range wanted {
		g.Go(func() error {
			for _, t := range targets {
				if t.resolver.Satisfy(ctx, c, t.store) {
					logger.Infof("Satisfied %s from %q", c.CacheKey(), t.name)
					return nil
				}
			}
			return fmt.Errorf("no configured repository satisfies %s", c.CacheKey())
		})
	}
	return g.Wait()
}

// parseCoordinate accepts group:artifact:version:extension with an optional
// classifier field before the extension.
func parseCoordinate(s string) (*coords.Coordinate, error) {
	parts := strings.Split(s, ":")
	c := &coords.Coordinate{}
	switch len(parts) {
	case 4:
		c.Group, c.Artifact, c.Version, c.Extension = parts[0], parts[1], parts[2], parts[3]
	case 5:
		c.Group, c.Artifact, c.Version, c.Classifier, c.Extension = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return nil, fmt.Errorf("invalid coordinate %q: want group:artifact:version[:classifier]:extension", s)
	}
	for _, field := range parts {
		if field == "" {
			return nil, fmt.Errorf("invalid coordinate %q: empty field", s)
		}
	}
	c.FileName = c.CanonicalFileName()
	return c, nil
}
