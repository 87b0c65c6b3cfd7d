package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Standard file name of the recipe in the project root.
const RecipeFile = "kiln.toml"

var ErrRecipe = errors.New("invalid recipe")

// Build settings for one project.
type Recipe struct {
	// Base image reference for the runtime stage, or "scratch".
	Base string `toml:"base"`

	// The single network port the service is declared to listen on. The
	// declaration is documentation for whoever runs the image; binding it is
	// the service's job.
	Port int `toml:"port"`

	// Startup command, invoking the isolated environment's executor against
	// the service entry point.
	Entrypoint []string `toml:"entrypoint"`

	// Additional names excluded when copying the project tree into the
	// environment root, on top of the built-in exclusions.
	Exclude []string `toml:"exclude"`

	// Extra environment variables set in the runtime image.
	Env map[string]string `toml:"env"`

	// Runtime account settings.
	User User `toml:"user"`
}

// The unprivileged runtime account.
type User struct {
	Name string `toml:"name"`
	UID  int    `toml:"uid"`
	GID  int    `toml:"gid"`
}

// Returns the default recipe: a slim Python base, port 8000, and a service
// entry point at server.py run by the environment's interpreter.
func Default() *Recipe {
	return &Recipe{
		Base:       "python:3.12-slim",
		Port:       8000,
		Entrypoint: []string{"/app/.venv/bin/python", "server.py"},
		User:       User{Name: "app", UID: 1000, GID: 1000},
	}
}

// Loads the recipe from the project directory.
//
// A missing kiln.toml yields the defaults. A present file overlays the
// defaults field by field and must validate.
func Load(dir string) (*Recipe, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecipeFile))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}
	return Parse(data)
}

// Parses a recipe, overlaying it on the defaults.
//
// Unknown keys are rejected: a typo in a recipe should fail the build, not
// silently fall back to a default.
func Parse(data []byte) (*Recipe, error) {
	r := Default()

	md, err := toml.Decode(string(data), r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrRecipe, strings.Join(keys, ", "))
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Checks the recipe for settings that can never produce a valid image.
func (r *Recipe) Validate() error {
	if r.Base == "" {
		return fmt.Errorf("%w: no base image", ErrRecipe)
	}
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrRecipe, r.Port)
	}
	if len(r.Entrypoint) == 0 {
		return fmt.Errorf("%w: no entrypoint", ErrRecipe)
	}
	if r.User.Name == "" {
		return fmt.Errorf("%w: no runtime user", ErrRecipe)
	}
	if r.User.Name == "root" || r.User.UID == 0 {
		return fmt.Errorf("%w: runtime user %q is privileged", ErrRecipe, r.User.Name)
	}
	return nil
}

// Returns a stable byte encoding of the recipe for cache keying.
//
// TOML encoding writes keys in a fixed order, so two equal recipes always
// fingerprint identically.
func (r *Recipe) Fingerprint() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}
	return buf.Bytes(), nil
}
