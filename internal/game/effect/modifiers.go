package effect

// IncomingDamageMultiplier returns the factor applied to damage taken by the
// entity carrying st.
//
// Postcondition: Result > 0.
func (e *Engine) IncomingDamageMultiplier(st *State) float64 {
	m := 1.0
	if st.Has(Weaken) {
		m *= e.cfg.WeakenMultiplier
	}
	if st.Has(Vulnerability) {
		m *= e.cfg.VulnerabilityMultiplier
	}
	if st.Has(Harden) {
		m *= e.cfg.HardenMultiplier
	}
	return m
}

// OutgoingDamageMultiplier returns the factor applied to damage dealt by the
// entity carrying st.
func (e *Engine) OutgoingDamageMultiplier(st *State) float64 {
	if st.Has(StatDrain) {
		return e.cfg.StatDrainMultiplier
	}
	return 1.0
}

// EffectiveArmor adjusts base armor for Fortify, Expose and Pierce.
// Pierce zeroes armor outright; Expose halves it after Fortify is added.
//
// Postcondition: Result >= 0.
func (e *Engine) EffectiveArmor(st *State, base int) int {
	if st.Has(Pierce) {
		return 0
	}
	armor := base
	if st.Has(Fortify) {
		armor += e.cfg.FortifyArmor
	}
	if st.Has(Expose) {
		armor /= 2
	}
	return max(armor, 0)
}

// RollBonus returns the roll modifier granted by st.
func (e *Engine) RollBonus(st *State) int {
	if st.Has(Focus) {
		return e.cfg.FocusRollBonus
	}
	return 0
}

// LengthMultiplier returns the factor applied to the length of actions taken
// by the entity carrying st.
func (e *Engine) LengthMultiplier(st *State) float64 {
	if st.Has(Slow) {
		return e.cfg.SlowMultiplier
	}
	return 1.0
}

// ReflectFraction returns the share of incoming damage bounced back to the
// attacker.
func (e *Engine) ReflectFraction(st *State) float64 {
	if st.Has(Reflect) {
		return e.cfg.ReflectFraction
	}
	return 0
}

// IsStunned reports whether the entity loses its turn.
func IsStunned(st *State) bool { return st.Has(Stun) }

// IsSilenced reports whether the entity is barred from combo actions.
func IsSilenced(st *State) bool { return st.Has(Silence) }
