package storage

import (
	"context"
	"fmt"

	"github.com/example/guilda/internal/models"
)

func loc(lat, lon float64) *models.Coord { return &models.Coord{Lat: lat, Lon: lon} }

func mockProfile(id, name string, age int, g models.Gender, city string, at *models.Coord, ageMin, ageMax int, maxKm float64, image string, interests ...string) models.Profile {
	return models.Profile{
		ID:            id,
		DisplayName:   name,
		Age:           age,
		Gender:        g,
		City:          city,
		Location:      at,
		AgeMin:        ageMin,
		AgeMax:        ageMax,
		MaxDistanceKm: maxKm,
		Interests:     interests,
		ImageURL:      image,
		Role:          models.RoleOtaku,
		VendorStatus:  models.VendorActive,
		EmailVerified: true,
	}
}

// SeedProfiles is the demo deck every fresh store starts with.
func SeedProfiles() []models.Profile {
	return []models.Profile{
		mockProfile("mock-1", "Beatriz Silva", 25, models.GenderWomen, "São Paulo, SP", loc(-23.5505, -46.6333), 23, 35, 30, "/assets/profile-woman-1.jpg", "#onepiece", "#naruto", "#gaming", "#cosplay", "#anime"),
		mockProfile("mock-2", "Rafael Costa", 28, models.GenderMen, "Rio de Janeiro, RJ", loc(-22.9068, -43.1729), 24, 32, 50, "/assets/profile-man-1.jpg", "#dragonball", "#pokemon", "#manga", "#gaming", "#jrpg"),
		mockProfile("mock-3", "Camila Santos", 22, models.GenderWomen, "Belo Horizonte, MG", loc(-19.9167, -43.9345), 20, 28, 40, "/assets/profile-woman-2.jpg", "#sailormoon", "#studioghibli", "#jrpg", "#kawaii", "#manga"),
		mockProfile("mock-4", "Lucas Oliveira", 32, models.GenderMen, "Curitiba, PR", loc(-25.4284, -49.2733), 25, 38, 60, "/assets/profile-man-2.jpg", "#finalfantasy", "#zelda", "#nintendo", "#rpg", "#gaming"),
		mockProfile("mock-5", "Juliana Ferreira", 27, models.GenderWomen, "Porto Alegre, RS", loc(-30.0346, -51.2177), 24, 34, 45, "/assets/profile-woman-3.jpg", "#pokemon", "#attackontitan", "#anime", "#cosplay", "#convention"),
		mockProfile("mock-6", "Thiago Souza", 26, models.GenderMen, "Brasília, DF", loc(-15.8267, -47.9218), 22, 30, 35, "/assets/profile-man-3.jpg", "#demonslayer", "#naruto", "#manga", "#gaming", "#anime"),
		mockProfile("mock-7", "Amanda Rodrigues", 24, models.GenderWomen, "Recife, PE", loc(-8.0476, -34.8770), 21, 29, 50, "/assets/profile-woman-1.jpg", "#onepiece", "#gaming", "#cosplay", "#otaku", "#anime"),
		mockProfile("mock-8", "Felipe Almeida", 30, models.GenderMen, "Salvador, BA", loc(-12.9714, -38.5014), 26, 35, 55, "/assets/profile-man-1.jpg", "#dragonball", "#naruto", "#gaming", "#manga", "#convention"),
		mockProfile("mock-9", "Larissa Pereira", 23, models.GenderWomen, "Fortaleza, CE", loc(-3.7172, -38.5433), 20, 27, 40, "/assets/profile-woman-2.jpg", "#sailormoon", "#kawaii", "#anime", "#manga", "#otaku"),
		mockProfile("mock-10", "Bruno Carvalho", 29, models.GenderMen, "Manaus, AM", loc(-3.1190, -60.0217), 25, 33, 70, "/assets/profile-man-2.jpg", "#pokemon", "#zelda", "#gaming", "#nintendo", "#rpg"),
	}
}

// SeedProducts is the starting marketplace catalog.
func SeedProducts() []models.Product {
	return []models.Product{
		{ID: "prod-1", Name: "Figure Monkey D. Luffy Gear 5", PriceCents: 34990, Category: "Figures", Fandom: "One Piece", Description: "Figure oficial licenciada, 25cm, base inclusa.", ImageURL: "/assets/product-luffy.jpg", Official: true},
		{ID: "prod-2", Name: "Box Naruto Gold Vol. 1-10", PriceCents: 29900, Category: "HQs", Fandom: "Naruto", Description: "Coleção em capa dura, lacrada.", ImageURL: "/assets/product-naruto.jpg", Official: true},
		{ID: "prod-3", Name: "Espada Nichirin de Tanjiro", PriceCents: 18950, Category: "Props", Fandom: "Demon Slayer", Description: "Réplica em madeira pintada à mão, 100cm.", ImageURL: "/assets/product-nichirin.jpg", Official: false, SellerID: "seller-katana"},
		{ID: "prod-4", Name: "Livro do Jogador D&D 5e", PriceCents: 24900, Category: "RPG", Fandom: "Dungeons & Dragons", Description: "Edição em português, capa dura.", ImageURL: "/assets/product-dnd.jpg", Official: true},
		{ID: "prod-5", Name: "Booster Pokémon TCG Escarlate e Violeta", PriceCents: 5000, Category: "Cards", Fandom: "Pokémon", Description: "Booster lacrado com 10 cartas.", ImageURL: "/assets/product-pokemon.jpg", Official: true},
		{ID: "prod-6", Name: "Moletom Tropa de Exploração", PriceCents: 15990, Category: "Merch", Fandom: "Attack on Titan", Description: "Moletom bordado, tamanhos P a GG.", ImageURL: "/assets/product-aot.jpg", Official: false, SellerID: "seller-paradis"},
	}
}

type seedTarget interface {
	UpsertProfile(ctx context.Context, p models.Profile) error
	UpsertProduct(ctx context.Context, p models.Product) error
}

// Seed writes the demo profiles and products into s.
func Seed(ctx context.Context, s seedTarget) error {
	for _, p := range SeedProfiles() {
		if err := s.UpsertProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.ID, err)
		}
	}
	for _, p := range SeedProducts() {
		if err := s.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
