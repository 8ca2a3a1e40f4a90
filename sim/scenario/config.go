package scenario

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the parameters of every scenario. Each scenario reads only
// its own section; defaults reproduce the classic SimPy example models.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Seed int64 `yaml:"seed"`
	// Until overrides the scenario's own horizon when positive.
	Until float64 `yaml:"until"`

	Car          CarConfig          `yaml:"car"`
	Airplane     AirplaneConfig     `yaml:"airplane"`
	FuelStation  FuelStationConfig  `yaml:"fuel_station"`
	EventLatency EventLatencyConfig `yaml:"event_latency"`
	Carwash      CarwashConfig      `yaml:"carwash"`
	Bank         BankConfig         `yaml:"bank"`
	Movie        MovieConfig        `yaml:"movie"`
	MachineShop  MachineShopConfig  `yaml:"machine_shop"`
}

// CarConfig parameterizes the driving/parking loop.
type CarConfig struct {
	ParkingDuration float64 `yaml:"parking_duration"`
	TripDuration    float64 `yaml:"trip_duration"`
	Until           float64 `yaml:"until"`
}

// AirplaneConfig parameterizes the trip/charge loop and its interruption.
type AirplaneConfig struct {
	TripDuration     float64 `yaml:"trip_duration"`
	ChargingDuration float64 `yaml:"charging_duration"`
	InterruptAt      float64 `yaml:"interrupt_at"`
	Until            float64 `yaml:"until"`
}

// FuelStationConfig is shared by the resource, store and container stations.
type FuelStationConfig struct {
	Cars             int     `yaml:"cars"`
	InterArrival     float64 `yaml:"inter_arrival"`
	ChargingDuration float64 `yaml:"charging_duration"`
	Pumps            int     `yaml:"pumps"`
	TankCapacity     float64 `yaml:"tank_capacity"`
	FuelPerCar       float64 `yaml:"fuel_per_car"`
	RefillInterval   float64 `yaml:"refill_interval"`
	// Until bounds the container station only; the others run to completion.
	Until float64 `yaml:"until"`
}

// EventLatencyConfig parameterizes the sender/cable/receiver chain.
type EventLatencyConfig struct {
	SendInterval float64 `yaml:"send_interval"`
	CableDelay   float64 `yaml:"cable_delay"`
	Until        float64 `yaml:"until"`
}

// CarwashConfig parameterizes the carwash.
type CarwashConfig struct {
	Machines     int     `yaml:"machines"`
	WashTime     int     `yaml:"wash_time"`
	InterArrival int     `yaml:"inter_arrival"`
	InitialCars  int     `yaml:"initial_cars"`
	Until        float64 `yaml:"until"`
}

// BankConfig parameterizes the bank with impatient customers.
type BankConfig struct {
	Customers    int     `yaml:"customers"`
	Counters     int     `yaml:"counters"`
	InterArrival float64 `yaml:"inter_arrival"`
	MinPatience  float64 `yaml:"min_patience"`
	MaxPatience  float64 `yaml:"max_patience"`
	TimeInBank   float64 `yaml:"time_in_bank"`
	Until        float64 `yaml:"until"`
}

// MovieConfig parameterizes the cinema ticket counter.
type MovieConfig struct {
	Movies       []string `yaml:"movies"`
	Tickets      int      `yaml:"tickets"`
	MaxPerBuyer  int      `yaml:"max_per_buyer"`
	InterArrival float64  `yaml:"inter_arrival"`
	Until        float64  `yaml:"until"`
}

// MachineShopConfig parameterizes the machine shop.
type MachineShopConfig struct {
	Machines      int     `yaml:"machines"`
	PartTimeMean  float64 `yaml:"part_time_mean"`
	PartTimeSigma float64 `yaml:"part_time_sigma"`
	MTTF          float64 `yaml:"mttf"`
	RepairTime    float64 `yaml:"repair_time"`
	JobDuration   float64 `yaml:"job_duration"`
	Weeks         int     `yaml:"weeks"`
}

// DefaultConfig returns the parameters of the classic example models.
func DefaultConfig() Config {
	return Config{
		Seed: 42,
		Car: CarConfig{
			ParkingDuration: 5,
			TripDuration:    2,
			Until:           15,
		},
		Airplane: AirplaneConfig{
			TripDuration:     2,
			ChargingDuration: 5,
			InterruptAt:      3,
			Until:            15,
		},
		FuelStation: FuelStationConfig{
			Cars:             4,
			InterArrival:     2,
			ChargingDuration: 5,
			Pumps:            2,
			TankCapacity:     100,
			FuelPerCar:       40,
			RefillInterval:   4,
			Until:            15,
		},
		EventLatency: EventLatencyConfig{
			SendInterval: 5,
			CableDelay:   10,
			Until:        100,
		},
		Carwash: CarwashConfig{
			Machines:     2,
			WashTime:     5,
			InterArrival: 7,
			InitialCars:  4,
			Until:        200,
		},
		Bank: BankConfig{
			Customers:    500,
			Counters:     1,
			InterArrival: 3,
			MinPatience:  1,
			MaxPatience:  3,
			TimeInBank:   12,
			Until:        200,
		},
		Movie: MovieConfig{
			Movies:       []string{"Avatar", "Top Gun", "Avengers"},
			Tickets:      50,
			MaxPerBuyer:  6,
			InterArrival: 0.5,
			Until:        120,
		},
		MachineShop: MachineShopConfig{
			Machines:      10,
			PartTimeMean:  10,
			PartTimeSigma: 2,
			MTTF:          300,
			RepairTime:    30,
			JobDuration:   30,
			Weeks:         4,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig, so a file only needs
// the keys it changes. Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading scenario config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing scenario config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	if err := nonNegative("until", c.Until); err != nil {
		return err
	}
	checks := []struct {
		name  string
		value float64
	}{
		{"car.parking_duration", c.Car.ParkingDuration},
		{"car.trip_duration", c.Car.TripDuration},
		{"airplane.trip_duration", c.Airplane.TripDuration},
		{"airplane.charging_duration", c.Airplane.ChargingDuration},
		{"airplane.interrupt_at", c.Airplane.InterruptAt},
		{"fuel_station.inter_arrival", c.FuelStation.InterArrival},
		{"fuel_station.charging_duration", c.FuelStation.ChargingDuration},
		{"fuel_station.refill_interval", c.FuelStation.RefillInterval},
		{"event_latency.send_interval", c.EventLatency.SendInterval},
		{"event_latency.cable_delay", c.EventLatency.CableDelay},
		{"bank.inter_arrival", c.Bank.InterArrival},
		{"bank.time_in_bank", c.Bank.TimeInBank},
		{"movie.inter_arrival", c.Movie.InterArrival},
		{"machine_shop.part_time_mean", c.MachineShop.PartTimeMean},
		{"machine_shop.mttf", c.MachineShop.MTTF},
		{"machine_shop.repair_time", c.MachineShop.RepairTime},
		{"machine_shop.job_duration", c.MachineShop.JobDuration},
	}
	for _, ck := range checks {
		if err := positive(ck.name, ck.value); err != nil {
			return err
		}
	}
	for _, ck := range []struct {
		name  string
		value float64
	}{
		{"car.until", c.Car.Until},
		{"airplane.until", c.Airplane.Until},
		{"fuel_station.until", c.FuelStation.Until},
		{"event_latency.until", c.EventLatency.Until},
		{"carwash.until", c.Carwash.Until},
		{"bank.until", c.Bank.Until},
		{"movie.until", c.Movie.Until},
		{"machine_shop.part_time_sigma", c.MachineShop.PartTimeSigma},
	} {
		if err := nonNegative(ck.name, ck.value); err != nil {
			return err
		}
	}
	counts := []struct {
		name  string
		value int
	}{
		{"fuel_station.cars", c.FuelStation.Cars},
		{"fuel_station.pumps", c.FuelStation.Pumps},
		{"carwash.machines", c.Carwash.Machines},
		{"carwash.inter_arrival", c.Carwash.InterArrival},
		{"bank.counters", c.Bank.Counters},
		{"movie.tickets", c.Movie.Tickets},
		{"movie.max_per_buyer", c.Movie.MaxPerBuyer},
		{"machine_shop.machines", c.MachineShop.Machines},
		{"machine_shop.weeks", c.MachineShop.Weeks},
	}
	for _, ck := range counts {
		if ck.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", ck.name, ck.value)
		}
	}
	if c.Carwash.WashTime < 2 {
		return fmt.Errorf("carwash.wash_time must be at least 2, got %d", c.Carwash.WashTime)
	}
	if c.Carwash.InitialCars < 0 || c.Bank.Customers < 0 {
		return fmt.Errorf("carwash.initial_cars and bank.customers must not be negative")
	}
	if c.Bank.MinPatience < 0 || c.Bank.MaxPatience < c.Bank.MinPatience {
		return fmt.Errorf("bank patience range [%v, %v] is invalid", c.Bank.MinPatience, c.Bank.MaxPatience)
	}
	fs := c.FuelStation
	if err := positive("fuel_station.tank_capacity", fs.TankCapacity); err != nil {
		return err
	}
	if !(fs.FuelPerCar > 0) || fs.FuelPerCar > fs.TankCapacity {
		return fmt.Errorf("fuel_station.fuel_per_car must be in (0, %v], got %v", fs.TankCapacity, fs.FuelPerCar)
	}
	if len(c.Movie.Movies) == 0 {
		return fmt.Errorf("movie.movies must list at least one movie")
	}
	return nil
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite positive number, got %v", name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
	}
	return nil
}
