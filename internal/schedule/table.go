package schedule

import "arcsched/internal/model"

// Table maps a UTC hour (0-23) to the events running at each location during
// that hour. Absent hours and absent locations mean "no events".
type Table map[int]map[model.Location][]model.EventKind

// Entry returns the per-location events for a UTC hour, never nil.
func (t Table) Entry(utcHour int) map[model.Location][]model.EventKind {
	if e, ok := t[NormalizeHour(utcHour)]; ok && e != nil {
		return e
	}
	return map[model.Location][]model.EventKind{}
}

// Default is the rotation as published by arcraidershub.com/data/events.json,
// keyed by UTC hour.
var Default = Table{
	0: {
		model.BuriedCity: {model.LushBlooms},
		model.BlueGate:   {model.NightRaid},
	},
	1: {
		model.Dam:       {model.LushBlooms},
		model.SpacePort: {model.ElectromagneticStorm},
	},
	2: {
		model.Dam:          {model.NightRaid},
		model.BlueGate:     {model.Matriarch},
		model.StellaMontis: {model.NightRaid},
	},
	3: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.Matriarch},
		model.BlueGate:   {model.ElectromagneticStorm},
	},
	4: {
		model.BuriedCity:   {model.UncoveredCaches},
		model.SpacePort:    {model.NightRaid},
		model.StellaMontis: {model.NightRaid},
	},
	5: {
		model.Dam:      {model.UncoveredCaches},
		model.BlueGate: {model.LushBlooms},
	},
	6: {
		model.Dam:      {model.ElectromagneticStorm},
		model.BlueGate: {model.NightRaid},
	},
	7: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.LaunchTowerLoot, model.ElectromagneticStorm},
	},
	8: {
		model.BuriedCity:   {model.LushBlooms},
		model.BlueGate:     {model.Matriarch},
		model.StellaMontis: {model.NightRaid},
	},
	9: {
		model.Dam:          {model.Harvester},
		model.BlueGate:     {model.ElectromagneticStorm},
		model.StellaMontis: {model.NightRaid},
	},
	10: {
		model.Dam:       {model.NightRaid},
		model.SpacePort: {model.NightRaid},
	},
	11: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.LushBlooms},
		model.BlueGate:   {model.Harvester},
	},
	12: {
		model.BuriedCity: {model.UncoveredCaches},
		model.BlueGate:   {model.NightRaid},
	},
	13: {
		model.Dam:       {model.Matriarch},
		model.SpacePort: {model.ElectromagneticStorm},
	},
	14: {
		model.Dam:          {model.ElectromagneticStorm},
		model.BlueGate:     {model.Matriarch},
		model.StellaMontis: {model.NightRaid},
	},
	15: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.LaunchTowerLoot},
		model.BlueGate:   {model.ElectromagneticStorm},
	},
	16: {
		model.BuriedCity:   {model.LushBlooms},
		model.SpacePort:    {model.NightRaid},
		model.StellaMontis: {model.NightRaid},
	},
	17: {
		model.Dam:      {model.LushBlooms},
		model.BlueGate: {model.UncoveredCaches},
	},
	18: {
		model.Dam:      {model.NightRaid},
		model.BlueGate: {model.NightRaid},
	},
	19: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.Matriarch, model.ElectromagneticStorm},
	},
	20: {
		model.BuriedCity: {model.UncoveredCaches},
		model.BlueGate:   {model.Harvester},
	},
	21: {
		model.Dam:          {model.Harvester},
		model.BlueGate:     {model.ElectromagneticStorm},
		model.StellaMontis: {model.NightRaid},
	},
	22: {
		model.Dam:          {model.ElectromagneticStorm},
		model.SpacePort:    {model.NightRaid},
		model.StellaMontis: {model.NightRaid},
	},
	23: {
		model.BuriedCity: {model.NightRaid},
		model.SpacePort:  {model.Harvester},
		model.BlueGate:   {model.LushBlooms},
	},
}
