package region

// biomes is checked in order; overlapping boxes resolve to the first listed.
var biomes = []Box{
	newBox(Box{
		Name: "Amazon Rainforest", Level: LevelBiome,
		MinLat: -17, MaxLat: 5.5, MinLng: -79, MaxLng: -44,
		LargeBasin: true,
		Keywords: []string{
			"amazon", "amazonia", "amazonian", "brazil", "peru", "ecuador", "colombia",
			"bolivia", "venezuela", "guiana", "guyana", "suriname", "neotropic",
			"south america", "tropical america",
		},
	}),
	newBox(Box{
		Name: "Congo Basin", Level: LevelBiome,
		MinLat: -10, MaxLat: 8, MinLng: 9, MaxLng: 32,
		LargeBasin: true,
		Keywords: []string{
			"congo", "central africa", "cameroon", "gabon", "zaire", "afrotropic",
			"tropical africa", "equatorial africa",
		},
	}),
	newBox(Box{Name: "Atlantic Forest", Level: LevelBiome, MinLat: -30, MaxLat: -5, MinLng: -55, MaxLng: -34}),
	newBox(Box{Name: "Cerrado Savanna", Level: LevelBiome, MinLat: -24, MaxLat: -2, MinLng: -60, MaxLng: -41}),
	newBox(Box{Name: "Andes Mountains", Level: LevelBiome, MinLat: -55, MaxLat: 10, MinLng: -80, MaxLng: -66}),
	newBox(Box{Name: "Borneo Rainforest", Level: LevelBiome, MinLat: -4.5, MaxLat: 7.5, MinLng: 108.5, MaxLng: 119.5}),
	newBox(Box{Name: "Southeast Asian Rainforest", Level: LevelBiome, MinLat: -10, MaxLat: 20, MinLng: 95, MaxLng: 150}),
	newBox(Box{Name: "Madagascar", Level: LevelBiome, MinLat: -26, MaxLat: -11.5, MinLng: 43, MaxLng: 51}),
	newBox(Box{Name: "Sahara Desert", Level: LevelBiome, MinLat: 15, MaxLat: 32, MinLng: -17, MaxLng: 35}),
	newBox(Box{Name: "Serengeti Savanna", Level: LevelBiome, MinLat: -4, MaxLat: 0, MinLng: 33, MaxLng: 37}),
	newBox(Box{Name: "Himalayas", Level: LevelBiome, MinLat: 26, MaxLat: 36, MinLng: 72, MaxLng: 97}),
	newBox(Box{Name: "Mediterranean Basin", Level: LevelBiome, MinLat: 30, MaxLat: 46, MinLng: -10, MaxLng: 36}),
	newBox(Box{Name: "Australian Outback", Level: LevelBiome, MinLat: -32, MaxLat: -18, MinLng: 115, MaxLng: 145}),
	newBox(Box{Name: "North American Temperate Forest", Level: LevelBiome, MinLat: 30, MaxLat: 50, MinLng: -95, MaxLng: -65}),
	newBox(Box{Name: "Canadian Boreal Forest", Level: LevelBiome, MinLat: 50, MaxLat: 65, MinLng: -140, MaxLng: -55}),
	newBox(Box{Name: "Siberian Taiga", Level: LevelBiome, MinLat: 50, MaxLat: 70, MinLng: 60, MaxLng: 140}),
	newBox(Box{Name: "Arctic Tundra", Level: LevelBiome, MinLat: 66, MaxLat: 90, MinLng: -180, MaxLng: 180}),
}

// continents is the coarse fallback table, also used as density buckets.
var continents = []Box{
	newBox(Box{Name: "South America", Level: LevelContinent, MinLat: -56, MaxLat: 13, MinLng: -82, MaxLng: -34}),
	newBox(Box{Name: "North America", Level: LevelContinent, MinLat: 7, MaxLat: 84, MinLng: -170, MaxLng: -52}),
	newBox(Box{Name: "Europe", Level: LevelContinent, MinLat: 35, MaxLat: 72, MinLng: -25, MaxLng: 45}),
	newBox(Box{Name: "Africa", Level: LevelContinent, MinLat: -35, MaxLat: 37.5, MinLng: -18, MaxLng: 52}),
	newBox(Box{Name: "Oceania", Level: LevelContinent, MinLat: -50, MaxLat: -10, MinLng: 110, MaxLng: 180}),
	newBox(Box{Name: "Asia", Level: LevelContinent, MinLat: -11, MaxLat: 82, MinLng: 25, MaxLng: 180}),
	newBox(Box{Name: "Antarctica", Level: LevelContinent, MinLat: -90, MaxLat: -60, MinLng: -180, MaxLng: 180}),
}
