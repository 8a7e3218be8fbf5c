package model

// AllModels is the bootstrap set handed to AutoMigrate at startup.
func AllModels() []interface{} {
	return []interface{}{
		&Session{},
		&SessionStrategy{},
		&SessionTeacher{},
		&SessionStudent{},
		&SessionDomain{},
		&VerifiedAnswer{},
		&ExtraNote{},
		&SessionRating{},
	}
}
