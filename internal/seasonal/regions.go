// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package seasonal

// Climate describes how a region's weather shifts seasonal electricity use
type Climate struct {
	HeatingIntensity float64
	CoolingNeed      float64
}

// DefaultRegion is used when a postcode area is not in PostcodeAreas
const DefaultRegion = "Default"

// Climates maps each region to its climate coefficients
var Climates = map[string]Climate{
	"Scotland":         {HeatingIntensity: 1.25, CoolingNeed: 0.70},
	"Northern Ireland": {HeatingIntensity: 1.15, CoolingNeed: 0.75},
	"North East":       {HeatingIntensity: 1.20, CoolingNeed: 0.80},
	"North West":       {HeatingIntensity: 1.15, CoolingNeed: 0.85},
	"Yorkshire":        {HeatingIntensity: 1.10, CoolingNeed: 0.85},
	"East Midlands":    {HeatingIntensity: 1.05, CoolingNeed: 0.90},
	"West Midlands":    {HeatingIntensity: 1.05, CoolingNeed: 0.90},
	"East":             {HeatingIntensity: 1.00, CoolingNeed: 0.95},
	"London":           {HeatingIntensity: 0.95, CoolingNeed: 1.00},
	"South East":       {HeatingIntensity: 0.95, CoolingNeed: 1.00},
	"South West":       {HeatingIntensity: 0.90, CoolingNeed: 0.95},
	"Wales":            {HeatingIntensity: 1.10, CoolingNeed: 0.85},
	DefaultRegion:      {HeatingIntensity: 1.00, CoolingNeed: 0.90},
}

// PostcodeAreas maps UK postcode areas to regions
var PostcodeAreas = map[string]string{
	// Scotland
	"AB": "Scotland", "DD": "Scotland", "DG": "Scotland", "EH": "Scotland",
	"FK": "Scotland", "G": "Scotland", "HS": "Scotland", "IV": "Scotland",
	"KA": "Scotland", "KW": "Scotland", "KY": "Scotland", "ML": "Scotland",
	"PA": "Scotland", "PH": "Scotland", "TD": "Scotland", "ZE": "Scotland",

	"BT": "Northern Ireland",

	"NE": "North East", "SR": "North East", "DH": "North East", "TS": "North East",
	"DL": "North East",

	"BB": "North West", "BL": "North West", "CA": "North West", "CH": "North West",
	"FY": "North West", "L": "North West", "LA": "North West", "M": "North West",
	"OL": "North West", "PR": "North West", "SK": "North West", "WA": "North West",
	"WN": "North West", "CW": "North West",

	"BD": "Yorkshire", "DN": "Yorkshire", "HD": "Yorkshire", "HG": "Yorkshire",
	"HU": "Yorkshire", "HX": "Yorkshire", "LS": "Yorkshire", "S": "Yorkshire",
	"WF": "Yorkshire", "YO": "Yorkshire",

	"DE": "East Midlands", "LE": "East Midlands", "LN": "East Midlands",
	"NG": "East Midlands", "NN": "East Midlands",

	"B": "West Midlands", "CV": "West Midlands", "DY": "West Midlands",
	"HR": "West Midlands", "SY": "West Midlands", "TF": "West Midlands",
	"WR": "West Midlands", "WS": "West Midlands", "WV": "West Midlands",
	"ST": "West Midlands",

	"CB": "East", "CM": "East", "CO": "East", "IP": "East", "NR": "East",
	"PE": "East", "SG": "East", "SS": "East", "AL": "East", "LU": "East",

	"E": "London", "EC": "London", "N": "London", "NW": "London",
	"SE": "London", "SW": "London", "W": "London", "WC": "London",

	"BR": "South East", "BN": "South East", "CR": "South East", "CT": "South East",
	"DA": "South East", "GU": "South East", "HP": "South East", "KT": "South East",
	"ME": "South East", "MK": "South East", "OX": "South East", "PO": "South East",
	"RG": "South East", "RH": "South East", "SL": "South East", "SM": "South East",
	"SN": "South East", "SO": "South East", "SP": "South East", "TN": "South East",
	"TW": "South East", "UB": "South East",

	"BA": "South West", "BH": "South West", "BS": "South West", "DT": "South West",
	"EX": "South West", "GL": "South West", "PL": "South West", "TA": "South West",
	"TQ": "South West", "TR": "South West",

	"CF": "Wales", "LD": "Wales", "LL": "Wales", "NP": "Wales", "SA": "Wales",
}

// UK base degree days by month, January first
var (
	baseHeatingDegreeDays = [12]float64{350, 320, 280, 200, 120, 50, 20, 25, 90, 180, 270, 330}
	baseCoolingDegreeDays = [12]float64{0, 0, 0, 0, 5, 20, 35, 30, 10, 0, 0, 0}
)
