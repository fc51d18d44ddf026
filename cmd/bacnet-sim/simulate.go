package main

import (
	"math"
	"math/rand/v2"

	"github.com/bacstack/bacnet-go/pkg/interaction"
	"github.com/bacstack/bacnet-go/pkg/model"
)

// maxDrift bounds the change of one analog value per tick.
const maxDrift = 0.5

// driftAnalogValues moves every numeric analog present value by a random step
// and returns how many values changed.
func driftAnalogValues(store *interaction.MemoryStore, rnd *rand.Rand) int {
	changed := 0
	for _, dc := range store.Devices() {
		device := model.DeviceID(dc.Instance)
		for _, oid := range store.Objects(device) {
			if oid.Type != model.ObjectAnalogInput && oid.Type != model.ObjectAnalogValue {
				continue
			}
			v, err := store.ReadProperty(device, oid, model.Ref(model.PropPresentValue))
			if err != nil {
				continue
			}
			var current float64
			switch x := v.(type) {
			case float64:
				current = x
			case int64:
				current = float64(x)
			default:
				continue
			}
			next := math.Round((current+(rnd.Float64()*2-1)*maxDrift)*10) / 10
			if store.SetProperty(device, oid, model.PropPresentValue, next) == nil {
				changed++
			}
		}
	}
	return changed
}
