// Package register registers all missions
package register

import (
	// register missions.
	_ "robobot.dev/raubase/missions/approach"
	_ "robobot.dev/raubase/missions/axe"
	_ "robobot.dev/raubase/missions/crossing"
	_ "robobot.dev/raubase/missions/gate"
	_ "robobot.dev/raubase/missions/golfball"
	_ "robobot.dev/raubase/missions/irtest"
	_ "robobot.dev/raubase/missions/racetrack"
	_ "robobot.dev/raubase/missions/roundabout"
	_ "robobot.dev/raubase/missions/seesaw"
	_ "robobot.dev/raubase/missions/stairs"
)
