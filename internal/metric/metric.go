// Package metric defines the closed set of tracked metrics and their
// classification.
//
// Every metric belongs to exactly one Kind. Skill, activity and boss metrics
// are raw counters stored as integers. Computed metrics (efficiency ratios)
// are stored as integer numerators over a per-metric denominator.
package metric

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Metric is the canonical lower_snake_case name of a tracked statistic.
type Metric string

// Kind classifies a metric.
type Kind string

const (
	KindSkill    Kind = "skill"
	KindActivity Kind = "activity"
	KindBoss     Kind = "boss"
	KindComputed Kind = "computed"
)

// Skills lists every skill metric, overall first.
var Skills = []Metric{
	"overall", "attack", "defence", "strength", "hitpoints", "ranged",
	"prayer", "magic", "cooking", "woodcutting", "fletching", "fishing",
	"firemaking", "crafting", "smithing", "mining", "herblore", "agility",
	"thieving", "slayer", "farming", "runecrafting", "hunter", "construction",
}

// Activities lists every activity metric.
var Activities = []Metric{
	"league_points", "bounty_hunter_hunter", "bounty_hunter_rogue",
	"clue_scrolls_all", "clue_scrolls_beginner", "clue_scrolls_easy",
	"clue_scrolls_medium", "clue_scrolls_hard", "clue_scrolls_elite",
	"clue_scrolls_master", "last_man_standing", "pvp_arena",
	"soul_wars_zeal", "guardians_of_the_rift",
}

// Bosses lists every boss metric.
var Bosses = []Metric{
	"abyssal_sire", "alchemical_hydra", "barrows_chests", "bryophyta",
	"callisto", "cerberus", "chambers_of_xeric", "chaos_elemental",
	"chaos_fanatic", "commander_zilyana", "corporeal_beast",
	"crazy_archaeologist", "dagannoth_prime", "dagannoth_rex",
	"dagannoth_supreme", "general_graardor", "giant_mole",
	"grotesque_guardians", "hespori", "kalphite_queen", "king_black_dragon",
	"kraken", "kreearra", "kril_tsutsaroth", "mimic", "nex", "nightmare",
	"obor", "sarachnis", "scorpia", "skotizo", "tempoross",
	"the_gauntlet", "the_corrupted_gauntlet", "theatre_of_blood",
	"thermonuclear_smoke_devil", "tombs_of_amascut", "tzkal_zuk",
	"tztok_jad", "venenatis", "vetion", "vorkath", "wintertodt", "zalcano",
	"zulrah",
}

// Computed lists every computed (ratio) metric.
var Computed = []Metric{"ehp", "ehb"}

// Normalize folds case and maps separators to underscores so that
// "Chambers of Xeric", "chambers-of-xeric" and "CHAMBERS_OF_XERIC" parse alike.
func Normalize(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(s)
}

// UnknownMetricError is returned when a name does not match any metric.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Name)
}
