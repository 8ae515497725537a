package lf

import "go.uber.org/zap"

const (
	FieldModule      = "module"
	FieldToken       = "token"
	FieldEventID     = "event_id"
	FieldTeamID      = "team_id"
	FieldTeamName    = "team_name"
	FieldPanel       = "panel"
	FieldJuryID      = "jury_id"
	FieldCriterion   = "criterion"
	FieldAdminLogin  = "admin_login"
	FieldTotal       = "total"
	FieldAvgScore    = "avg_score"
	FieldVersion     = "version"
	FieldProvider    = "provider"
	FieldSubscribers = "subscribers"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func Token(token string) zap.Field {
	return zap.String(FieldToken, token)
}

func EventID(ID uint) zap.Field {
	return zap.Uint(FieldEventID, ID)
}

func TeamID(ID uint) zap.Field {
	return zap.Uint(FieldTeamID, ID)
}

func TeamName(name string) zap.Field {
	return zap.String(FieldTeamName, name)
}

func Panel(panel int) zap.Field {
	return zap.Int(FieldPanel, panel)
}

func JuryID(ID uint) zap.Field {
	return zap.Uint(FieldJuryID, ID)
}

func Criterion(name string) zap.Field {
	return zap.String(FieldCriterion, name)
}

func AdminLogin(login string) zap.Field {
	return zap.String(FieldAdminLogin, login)
}

func Total(total int) zap.Field {
	return zap.Int(FieldTotal, total)
}

func AvgScore(avg float64) zap.Field {
	return zap.Float64(FieldAvgScore, avg)
}

func Version(version int64) zap.Field {
	return zap.Int64(FieldVersion, version)
}

func Provider(name string) zap.Field {
	return zap.String(FieldProvider, name)
}

func Subscribers(count int) zap.Field {
	return zap.Int(FieldSubscribers, count)
}
