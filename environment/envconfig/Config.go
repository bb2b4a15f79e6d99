// Package envconfig provides JSON serializable configuration structs
// describing the Atari environments that agents are trained on. The
// environments themselves are simulated by the trainer.
package envconfig

import (
	"fmt"
	"path/filepath"
	"sort"

	env "github.com/samuelfneumann/asyncrl/environment"
)

// minimalActions is the size of the minimal action set of each game
var minimalActions = map[string]int{
	"alien":             18,
	"amidar":            10,
	"assault":           7,
	"asterix":           9,
	"beam_rider":        9,
	"breakout":          4,
	"enduro":            9,
	"freeway":           3,
	"frostbite":         18,
	"gravitar":          18,
	"montezuma_revenge": 18,
	"ms_pacman":         9,
	"pitfall":           18,
	"pong":              6,
	"private_eye":       18,
	"qbert":             6,
	"seaquest":          18,
	"solaris":           18,
	"space_invaders":    6,
	"venture":           18,
}

// Games returns the names of the games whose action sets are known,
// in sorted order
func Games() []string {
	games := make([]string, 0, len(minimalActions))
	for game := range minimalActions {
		games = append(games, game)
	}
	sort.Strings(games)
	return games
}

// Config describes a single Atari game
type Config struct {
	ROMDir string `json:"rom_dir" yaml:"rom_dir"`
	Game   string `json:"game" yaml:"game"`
	Plot   bool   `json:"plot" yaml:"plot"`
}

// NewConfig returns a new environment Config
func NewConfig(romDir, game string, plot bool) (Config, error) {
	c := Config{
		ROMDir: romDir,
		Game:   game,
		Plot:   plot,
	}
	return c, c.Validate()
}

// Validate checks that the Config describes a game
func (c Config) Validate() error {
	if c.Game == "" {
		return fmt.Errorf("validate: no game specified")
	}
	if c.ROMDir == "" {
		return fmt.Errorf("validate: no ROM directory specified")
	}
	if filepath.Base(c.Game) != c.Game {
		return fmt.Errorf("validate: game %q must not contain a path", c.Game)
	}
	return nil
}

// ROMFile returns the path to the ROM of the game
func (c Config) ROMFile() string {
	return filepath.Join(c.ROMDir, c.Game+".bin")
}

// NumberOfActions returns the size of the minimal action set of the
// game, or 0 if unknown, in which case the trainer determines it from
// the ROM.
func (c Config) NumberOfActions() int {
	return minimalActions[c.Game]
}

// ActionSpec returns the discrete action specification of the game. An
// error is returned if the number of actions is unknown.
func (c Config) ActionSpec() (env.Spec, error) {
	n := c.NumberOfActions()
	if n == 0 {
		return env.Spec{}, fmt.Errorf("actionSpec: unknown number of "+
			"actions for game %v", c.Game)
	}
	return env.NewDiscreteSpec(env.Action, n)
}
