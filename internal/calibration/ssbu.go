package calibration

import "github.com/GriffinCanCode/autovod/internal/frame"

// SmashUltimate1080p is the Super Smash Bros. Ultimate load-in screen at 1920x1080.
const SmashUltimate1080p = "ssbu-1080p"

var (
	ssbuGrey  = [4]byte{0x36, 0x43, 0x48, 0xFF}
	ssbuBlack = [4]byte{0x0F, 0x10, 0x18, 0xFF}
)

const ssbuTolerance = 10

func smashUltimate1080p() *Table {
	return &Table{
		Name:   SmashUltimate1080p,
		Width:  1920,
		Height: 1080,
		Probes: []Probe{
			// grey header band, row 0
			{Label: "top left corner", Color: ssbuGrey, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 0, X1: 16, Y0: 0, Y1: 1}},
			{Label: "top left center", Color: ssbuGrey, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 480, X1: 496, Y0: 0, Y1: 1}},
			{Label: "top right center", Color: ssbuGrey, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 1440, X1: 1456, Y0: 0, Y1: 1}},
			{Label: "top center", Color: ssbuGrey, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 968, X1: 984, Y0: 0, Y1: 1}},
			// name background
			{Label: "name background left", Color: ssbuBlack, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 0, X1: 1, Y0: 34, Y1: 42}},
			{Label: "name background center", Color: ssbuBlack, Tolerance: ssbuTolerance, Rect: frame.Rect{X0: 960, X1: 961, Y0: 34, Y1: 42}},
		},
		Threshold: 1.0,
		NameBoxes: []Box{
			{X0: Fraction{1, 16}, X1: Fraction{7, 16}, Y0: Fraction{0, 8}, Y1: Fraction{1, 8}},
			{X0: Fraction{9, 16}, X1: Fraction{15, 16}, Y0: Fraction{0, 8}, Y1: Fraction{1, 8}},
		},
		MatchLimit: 4,
		Vocabulary: ssbuFighters,
	}
}

// Mii fighters are absent: their boxes show the player-chosen Mii name.
var ssbuFighters = []string{
	"MARIO",
	"DONKEY KONG",
	"LINK",
	"SAMUS",
	"DARK SAMUS",
	"YOSHI",
	"KIRBY",
	"FOX",
	"PIKACHU",
	"LUIGI",
	"NESS",
	"CAPTAIN FALCON",
	"JIGGLYPUFF",
	"PEACH",
	"DAISY",
	"BOWSER",
	"ICE CLIMBERS",
	"SHEIK",
	"ZELDA",
	"DR. MARIO",
	"PICHU",
	"FALCO",
	"MARTH",
	"LUCINA",
	"YOUNG LINK",
	"GANONDORF",
	"MEWTWO",
	"ROY",
	"CHROM",
	"MR. GAME & WATCH",
	"META KNIGHT",
	"PIT",
	"DARK PIT",
	"ZERO SUIT SAMUS",
	"WARIO",
	"SNAKE",
	"IKE",
	"POKEMON TRAINER",
	"DIDDY KONG",
	"LUCAS",
	"SONIC",
	"KING DEDEDE",
	"OLIMAR",
	"LUCARIO",
	"R.O.B.",
	"TOON LINK",
	"WOLF",
	"VILLAGER",
	"MEGA MAN",
	"WII FIT TRAINER",
	"ROSALINA & LUMA",
	"LITTLE MAC",
	"GRENINJA",
	"PALUTENA",
	"PAC-MAN",
	"ROBIN",
	"SHULK",
	"BOWSER JR.",
	"DUCK HUNT",
	"RYU",
	"KEN",
	"CLOUD",
	"CORRIN",
	"BAYONETTA",
	"INKLING",
	"RIDLEY",
	"SIMON",
	"RICHTER",
	"KING K. ROOL",
	"ISABELLE",
	"INCINEROAR",
	"PIRANHA PLANT",
	"JOKER",
	"HERO",
	"BANJO & KAZOOIE",
	"TERRY",
	"BYLETH",
	"MIN MIN",
	"STEVE",
	"SEPHIROTH",
	"PYRA/MYTHRA",
	"KAZUYA",
	"SORA",
}
