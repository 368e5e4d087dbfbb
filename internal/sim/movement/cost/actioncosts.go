package cost

import "math"

// Costs are measured in game ticks.
const (
	// Inf marks an infeasible edge. Any sum involving Inf is Inf.
	Inf = 1000000.0

	WalkOneBlockCost         = 20 / 4.317
	WalkOneInWaterCost       = 20 / 2.2
	WalkOneOverSoulSandCost  = WalkOneBlockCost * 2
	LadderUpOneCost          = 20 / 2.35
	LadderDownOneCost        = 20 / 3.0
	SneakOneBlockCost        = 20 / 1.3
	SprintOneBlockCost       = 20 / 5.612
	SprintMultiplier         = SprintOneBlockCost / WalkOneBlockCost
	WalkOffBlockCost         = WalkOneBlockCost * 0.8
	CenterAfterFallCost      = WalkOneBlockCost - WalkOffBlockCost
	Sqrt2                    = math.Sqrt2
	DiagonalEdgeAroundFactor = Sqrt2 - 0.001
)

var (
	// FallNBlocksCost[n] is the time to fall n blocks from rest.
	FallNBlocksCost   = generateFallNBlocksCost()
	Fall125BlocksCost = DistanceToTicks(1.25)
	Fall025BlocksCost = DistanceToTicks(0.25)
	// JumpOneBlockCost is the time spent in the air going up one block: rise 1.25 then
	// come back down 0.25.
	JumpOneBlockCost = Fall125BlocksCost - Fall025BlocksCost
)

func generateFallNBlocksCost() [257]float64 {
	var costs [257]float64
	for i := range costs {
		costs[i] = DistanceToTicks(float64(i))
	}
	return costs
}

// DistanceToTicks is the (fractional) number of ticks needed to fall a distance from rest.
func DistanceToTicks(distance float64) float64 {
	if distance == 0 {
		return 0
	}
	remaining := distance
	ticks := 0
	for {
		fall := velocity(ticks)
		if remaining <= fall {
			return float64(ticks) + remaining/fall
		}
		remaining -= fall
		ticks++
	}
}

func velocity(ticks int) float64 {
	return (math.Pow(0.98, float64(ticks)) - 1) * -3.92
}

// Add sums costs with Inf as an absorbing element.
func Add(costs ...float64) float64 {
	total := 0.0
	for _, c := range costs {
		if c >= Inf {
			return Inf
		}
		total += c
	}
	if total >= Inf {
		return Inf
	}
	return total
}

func Infeasible(c float64) bool { return c >= Inf }
