package command

import "fmt"

// Command identifiers understood by TraCI peers. Only the ids are defined
// here; payload layouts belong to callers.
const (
	GetVersion     uint8 = 0x00
	Load           uint8 = 0x01
	SimulationStep uint8 = 0x02
	SetOrder       uint8 = 0x03
	Close          uint8 = 0x7F

	GetInductionLoopVariable uint8 = 0xA0
	GetMultiEntryExit        uint8 = 0xA1
	GetTrafficLightVariable  uint8 = 0xA2
	GetLaneVariable          uint8 = 0xA3
	GetVehicleVariable       uint8 = 0xA4
	GetVehicleTypeVariable   uint8 = 0xA5
	GetRouteVariable         uint8 = 0xA6
	GetPoiVariable           uint8 = 0xA7
	GetPolygonVariable       uint8 = 0xA8
	GetJunctionVariable      uint8 = 0xA9
	GetEdgeVariable          uint8 = 0xAA
	GetSimulationVariable    uint8 = 0xAB
	GetGuiVariable           uint8 = 0xAC
	GetPersonVariable        uint8 = 0xAE

	SetTrafficLightVariable uint8 = 0xC2
	SetLaneVariable         uint8 = 0xC3
	SetVehicleVariable      uint8 = 0xC4
	SetVehicleTypeVariable  uint8 = 0xC5
	SetRouteVariable        uint8 = 0xC6
	SetPoiVariable          uint8 = 0xC7
	SetPolygonVariable      uint8 = 0xC8
	SetEdgeVariable         uint8 = 0xCA
	SetSimulationVariable   uint8 = 0xCB
	SetGuiVariable          uint8 = 0xCC
	SetPersonVariable       uint8 = 0xCE

	SubscribeVehicleVariable    uint8 = 0xD4
	SubscribeSimulationVariable uint8 = 0xDB
)

// Status result codes carried by every response.
const (
	ResultOK             uint8 = 0x00
	ResultNotImplemented uint8 = 0x01
	ResultError          uint8 = 0xFF
)

var names = map[uint8]string{
	GetVersion:     "get_version",
	Load:           "load",
	SimulationStep: "simulation_step",
	SetOrder:       "set_order",
	Close:          "close",

	GetInductionLoopVariable: "get_induction_loop",
	GetMultiEntryExit:        "get_multi_entry_exit",
	GetTrafficLightVariable:  "get_traffic_light",
	GetLaneVariable:          "get_lane",
	GetVehicleVariable:       "get_vehicle",
	GetVehicleTypeVariable:   "get_vehicle_type",
	GetRouteVariable:         "get_route",
	GetPoiVariable:           "get_poi",
	GetPolygonVariable:       "get_polygon",
	GetJunctionVariable:      "get_junction",
	GetEdgeVariable:          "get_edge",
	GetSimulationVariable:    "get_simulation",
	GetGuiVariable:           "get_gui",
	GetPersonVariable:        "get_person",

	SetTrafficLightVariable: "set_traffic_light",
	SetLaneVariable:         "set_lane",
	SetVehicleVariable:      "set_vehicle",
	SetVehicleTypeVariable:  "set_vehicle_type",
	SetRouteVariable:        "set_route",
	SetPoiVariable:          "set_poi",
	SetPolygonVariable:      "set_polygon",
	SetEdgeVariable:         "set_edge",
	SetSimulationVariable:   "set_simulation",
	SetGuiVariable:          "set_gui",
	SetPersonVariable:       "set_person",

	SubscribeVehicleVariable:    "subscribe_vehicle",
	SubscribeSimulationVariable: "subscribe_simulation",
}

// Name returns a stable label for id, falling back to its hex form.
func Name(id uint8) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("cmd_0x%02x", id)
}

// Known reports whether id has a registered name.
func Known(id uint8) bool {
	_, ok := names[id]
	return ok
}

// ResultName labels a status result code.
func ResultName(code uint8) string {
	switch code {
	case ResultOK:
		return "ok"
	case ResultNotImplemented:
		return "not_implemented"
	case ResultError:
		return "error"
	default:
		return fmt.Sprintf("result_0x%02x", code)
	}
}
