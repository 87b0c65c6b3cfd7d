package image

import (
	"fmt"
	"sort"
	"strings"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Executable directory of the isolated environment, preferred over system
// defaults on PATH.
const venvBin = EnvRootPath + "/.venv/bin"

// PATH used when the base image declares none.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Describes the runtime image to assemble.
type Config struct {
	EnvRoot    string            // Environment root directory produced by the builder stage.
	Account    Account           // Unprivileged account the process runs as.
	Port       int               // The single network port the service is declared to listen on.
	Entrypoint []string          // Startup command, run via the isolated environment's executor.
	Env        map[string]string // Additional environment variables.
	Project    string            // Project name, recorded as an OCI annotation.
	Version    string            // Project version, recorded as an OCI annotation.
}

// Assembles the runtime image: base plus the environment layer plus
// least-privilege configuration.
//
// The base's config is rewritten, not extended: PATH gains the environment's
// bin directory, bytecode caching and output buffering are switched off,
// exactly one port is exposed, the working directory is the environment
// root, and the active user is the unprivileged account. Creation time is
// zeroed so identical inputs rebuild to the identical image.
func Assemble(base v1.Image, cfg Config) (v1.Image, error) {
	if cfg.Account.IsRoot() {
		return nil, fmt.Errorf("%w: runtime account %q is privileged", ErrAssemble, cfg.Account.Name)
	}
	if len(cfg.Entrypoint) == 0 {
		return nil, fmt.Errorf("%w: no entrypoint", ErrAssemble)
	}

	layer, err := EnvironmentLayer(cfg.EnvRoot, cfg.Account)
	if err != nil {
		return nil, err
	}

	img, err := mutate.AppendLayers(base, layer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	baseConfig, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	img, err = mutate.Config(img, runtimeConfig(baseConfig.Config, cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	img, err = mutate.CreatedAt(img, v1.Time{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	return mutate.Annotations(img, annotations(cfg)).(v1.Image), nil
}

// Produces the runtime container config from the base's config.
func runtimeConfig(base v1.Config, cfg Config) v1.Config {
	out := base

	out.Env = runtimeEnv(base.Env, cfg.Env)
	out.User = cfg.Account.Name
	out.WorkingDir = EnvRootPath
	out.Entrypoint = cfg.Entrypoint
	out.Cmd = nil
	out.ExposedPorts = map[string]struct{}{
		fmt.Sprintf("%d/tcp", cfg.Port): {},
	}

	return out
}

// Builds the runtime environment variables.
//
// PATH is taken from the base (or the conventional default) and prefixed
// with the isolated environment's bin directory. PYTHONDONTWRITEBYTECODE
// keeps the copied filesystem exactly as assembled; PYTHONUNBUFFERED makes
// output observable in real time. Extra variables follow in sorted order so
// the config serializes deterministically.
func runtimeEnv(baseEnv []string, extra map[string]string) []string {
	path := defaultPath
	for _, entry := range baseEnv {
		if v, ok := strings.CutPrefix(entry, "PATH="); ok {
			path = v
			break
		}
	}

	env := []string{
		"PATH=" + venvBin + ":" + path,
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}

	return env
}

// Standard OCI annotations identifying what was built.
func annotations(cfg Config) map[string]string {
	anns := map[string]string{}
	if cfg.Project != "" {
		anns[ocispec.AnnotationTitle] = cfg.Project
	}
	if cfg.Version != "" {
		anns[ocispec.AnnotationVersion] = cfg.Version
	}
	return anns
}
