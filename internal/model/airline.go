package model

import "time"

// Airline represents a carrier that operates aircraft and schedules
// flights.  Airlines authenticate at the API boundary, so the record
// carries a bcrypt hash that the booking core never inspects.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  IATACode     – unique two character code, stored upper case.
//  Country      – country of registration.
//  Email        – unique login email, stored lower case.
//  PasswordHash – bcrypt hash of the login password.
//  CreatedAt    – creation timestamp.
type Airline struct {
	ID           uint64    // airlines.id
	Name         string    // airlines.name
	IATACode     string    // airlines.iata_code
	Country      string    // airlines.country
	Email        string    // airlines.email
	PasswordHash string    // airlines.password_hash
	CreatedAt    time.Time // airlines.created_at
}

// Aircraft is a plane owned by exactly one airline.  TotalSeats bounds
// the capacity of every flight scheduled on it.
//
// Fields:
//  ID         – primary key identifier.
//  AirlineID  – owning airline.
//  Model      – manufacturer model name.
//  TotalSeats – seat capacity, always positive.
//  CreatedAt  – creation timestamp.
type Aircraft struct {
	ID         uint64    // aircraft.id
	AirlineID  uint64    // aircraft.airline_id
	Model      string    // aircraft.model
	TotalSeats int       // aircraft.total_seats
	CreatedAt  time.Time // aircraft.created_at
}

// Airport is reference data.  Flights point at airports but never own
// them.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – airport name.
//  City     – served city.
//  Country  – country.
//  IATACode – unique three letter code, stored upper case.
type Airport struct {
	ID       uint64 // airports.id
	Name     string // airports.name
	City     string // airports.city
	Country  string // airports.country
	IATACode string // airports.iata_code
}

// Passenger is a customer who buys tickets.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – given name.
//  Surname      – family name.
//  Email        – unique login email, stored lower case.
//  PasswordHash – bcrypt hash of the login password.
//  CreatedAt    – creation timestamp.
type Passenger struct {
	ID           uint64    // passengers.id
	Name         string    // passengers.name
	Surname      string    // passengers.surname
	Email        string    // passengers.email
	PasswordHash string    // passengers.password_hash
	CreatedAt    time.Time // passengers.created_at
}

// Extra is an optional add-on (priority boarding, extra bag...) priced
// independently of the fare.
type Extra struct {
	ID        uint64 // extras.id
	Name      string // extras.name (unique)
	CostCents int64  // extras.cost_cents (> 0)
}
