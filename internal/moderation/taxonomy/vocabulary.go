package taxonomy

import (
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

// genericWeapon is the tracker's umbrella label; it counts as a firearm but carries a lower penalty.
const genericWeapon = "weapon"

var bladeTerms = []string{
	"knife", "blade", "dagger", "machete", "sword", "cutlass",
	"cutter", "razor", "scissors", "shears", "cutlery", "utensil",
	"kitchen knife", "pocket knife", "table knife", "butter knife", "steak knife",
	"switchblade", "box cutter", "x-acto", "scalpel", "screwdriver", "shank", "shiv",
	"tableware", "kitchen utensil",
	"arma blanca", "cuchillo", "navaja", "cubierto", "weapon_knife", "weapon_blade",
	"puñal", "daga", "cuchilla", "facón",
}

var firearmTerms = []string{
	"gun", "pistol", "rifle", "firearm", "shotgun", "revolver",
	"machine gun", "handgun", genericWeapon,
	"arma de fuego", "arma_fuego", "pistola", "arma", "weapon_firearm",
	"armamento", "revólver", "escopeta", "fusil", "metralleta", "subfusil", "ametralladora",
	"ak47", "kalashnikov", "uzi", "glock", "ar-15",
}

var gestureTerms = []string{
	"gesto obsceno", "gesto_obsceno", "dedo medio", "middle finger", "fuck you",
	"conducta obscena", "genital grab", "sexual gesture", "lewd conduct", "obscene gesture",
}

var violenceTerms = []string{
	"violencia", "sangre", "blood", "violence", "fight", "aggression",
}

var threatTerms = []string{
	"amenaza", "threat", "intimidación", "intimidation", "neck cut", "slit throat",
	"strangulation", "estrangulamiento",
}

// neckCutTerms are matched as substrings of free-text descriptions.
var neckCutTerms = []string{"cuello", "degoll", "corte", "slit", "throat", "neck"}

var knifeMentionTerms = []string{
	"cuchillo", "knife", "blade", "cubierto", "cutlery", "utensil",
	"table knife", "butter knife", "steak knife",
}

type vocabulary map[string]moderation.AlertKind

func buildVocabulary() vocabulary {
	v := vocabulary{}
	add := func(kind moderation.AlertKind, terms []string) {
		for _, t := range terms {
			v[Key(t)] = kind
		}
	}
	add(moderation.AlertWeaponBlade, bladeTerms)
	add(moderation.AlertWeaponFirearm, firearmTerms)
	add(moderation.AlertObsceneGesture, gestureTerms)
	add(moderation.AlertViolence, violenceTerms)
	add(moderation.AlertThreat, threatTerms)
	return v
}
