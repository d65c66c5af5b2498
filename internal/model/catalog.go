package model

// Catalog is the reference data of one tenant.
type Catalog struct {
	Services []Service
	Barbers  []Barber
}

// Service returns the service with the given id.
func (c Catalog) Service(id string) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// Barber returns the barber with the given id.
func (c Catalog) Barber(id string) (Barber, bool) {
	for _, b := range c.Barbers {
		if b.ID == id {
			return b, true
		}
	}
	return Barber{}, false
}

// RegularServices returns the services bookable without a plan.
func (c Catalog) RegularServices() []Service {
	var out []Service
	for _, s := range c.Services {
		if !s.IsPlanService {
			out = append(out, s)
		}
	}
	return out
}

// PlanServices returns the services included in a subscription plan.
func (c Catalog) PlanServices() []Service {
	var out []Service
	for _, s := range c.Services {
		if s.IsPlanService {
			out = append(out, s)
		}
	}
	return out
}
