package gsi

import (
	"fmt"
	"os"
)

// GenerateConfig renders the gamestate_integration cfg the game client needs
// in order to post reports at uri. The token must match the server's
// [WithAuthToken] value.
func GenerateConfig(uri, token string) string {
	return fmt.Sprintf(`"Iris Stream Assistant"
{
    "uri" "%s"
    "timeout" "5.0"
    "buffer" "0.1"
    "throttle" "0.1"
    "heartbeat" "10.0"
    "auth"
    {
        "token" "%s"
    }
    "data"
    {
        "provider"            "1"
        "map"                 "1"
        "round"               "1"
        "player_id"           "1"
        "player_state"        "1"
        "player_weapons"      "1"
        "player_match_stats"  "1"
        "allplayers_id"       "1"
        "allplayers_state"    "1"
        "bomb"                "1"
        "phase_countdowns"    "1"
    }
}
`, uri, token)
}

// WriteConfig writes the integration cfg to path. The file belongs in the
// game's csgo/cfg directory.
func WriteConfig(path, uri, token string) error {
	if err := os.WriteFile(path, []byte(GenerateConfig(uri, token)), 0o644); err != nil {
		return fmt.Errorf("gsi: write config: %w", err)
	}
	return nil
}
