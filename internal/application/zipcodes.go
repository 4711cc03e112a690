package application

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
)

// zipRange is the span of three-digit ZIP prefixes assigned to a state.
type zipRange struct {
	State  string
	Lo, Hi int
}

var zipRanges = []zipRange{
	{"AK", 995, 999}, {"AL", 350, 369}, {"AR", 716, 729}, {"AZ", 850, 865},
	{"CA", 900, 961}, {"CO", 800, 816}, {"CT", 60, 69}, {"DC", 200, 205},
	{"DE", 197, 199}, {"FL", 320, 349}, {"GA", 300, 319}, {"HI", 967, 968},
	{"IA", 500, 528}, {"ID", 832, 838}, {"IL", 600, 629}, {"IN", 460, 479},
	{"KS", 660, 679}, {"KY", 400, 427}, {"LA", 700, 714}, {"MA", 10, 27},
	{"MD", 206, 219}, {"ME", 39, 49}, {"MI", 480, 499}, {"MN", 550, 567},
	{"MO", 630, 658}, {"MS", 386, 397}, {"MT", 590, 599}, {"NC", 270, 289},
	{"ND", 580, 588}, {"NE", 680, 693}, {"NH", 30, 38}, {"NJ", 70, 89},
	{"NM", 870, 884}, {"NV", 889, 898}, {"NY", 100, 149}, {"OH", 430, 459},
	{"OK", 730, 749}, {"OR", 970, 979}, {"PA", 150, 196}, {"RI", 28, 29},
	{"SC", 290, 299}, {"SD", 570, 577}, {"TN", 370, 385}, {"TX", 750, 799},
	{"UT", 840, 847}, {"VA", 220, 246}, {"VT", 50, 59}, {"WA", 980, 994},
	{"WI", 530, 549}, {"WV", 247, 268}, {"WY", 820, 831},
}

// stateAndZip picks a state and a five-digit ZIP code inside that state.
func stateAndZip(f *gofakeit.Faker) (string, string) {
	r := zipRanges[f.Number(0, len(zipRanges)-1)]
	return r.State, fmt.Sprintf("%03d%02d", f.Number(r.Lo, r.Hi), f.Number(0, 99))
}
