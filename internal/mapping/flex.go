// Flexsync - Rental Inventory API Replication
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flexsync

package mapping

// Default returns the registry of Flex Rental Solutions collections.
func Default() *Registry {
	return MustRegistry(
		contacts(),
		inventoryGroups(),
		inventoryModels(),
		serialUnits(),
		elements(),
		businessLocations(),
		pricingModels(),
		standardDiscounts(),
		unitsOfMeasure(),
		resourceTypes(),
		paymentTerms(),
	)
}

func contacts() *Collection {
	return &Collection{
		Name:        "contacts",
		Table:       "contacts",
		Description: "Customers, vendors and crew",
		Source:      SourcePaged,
		Path:        "/contact",
		DetailPath:  "/contact",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "firstName", Column: "first_name", Kind: Text},
			{Remote: "lastName", Column: "last_name", Kind: Text},
			{Remote: "contactType", Column: "contact_type", Kind: Text},
			{Remote: "status", Column: "status", Kind: Text},
			{Remote: "email", Column: "email", Kind: Text, DetailOnly: true},
			{Remote: "phone", Column: "phone", Kind: Text, DetailOnly: true},
			{Remote: "defaultBillToContactId", Column: "default_bill_to_contact_id", Kind: Text, DetailOnly: true},
			{Remote: "defaultPricingModelId", Column: "default_pricing_model_id", Kind: Text, DetailOnly: true},
			{Remote: "standardDiscountId", Column: "standard_discount_id", Kind: Text, DetailOnly: true},
			{Remote: "homeBaseLocationId", Column: "homebase_location_id", Kind: Text, DetailOnly: true},
			{Remote: "createdDate", Column: "flex_created_date", Kind: Timestamp, DetailOnly: true},
		},
	}
}

func inventoryGroups() *Collection {
	return &Collection{
		Name:        "inventory_groups",
		Table:       "inventory_groups",
		Description: "Inventory group tree",
		Source:      SourceUnpaged,
		Path:        "/inventory-group/search",
		Params:      map[string]string{"searchText": ""},
		DetailPath:  "/inventory-group",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "fullDisplayString", Column: "full_display_string", Kind: Text, DetailOnly: true},
			{Remote: "parentGroup.id", Column: "parent_group_id", Kind: Text, DetailOnly: true},
			{Remote: "parentGroup.name", Column: "parent_group_name", Kind: Text, DetailOnly: true},
			{Remote: "icon.name", Column: "icon_name", Kind: Text, DetailOnly: true},
			{Remote: "managementGroup", Column: "management_group", Kind: Bool, DetailOnly: true},
			{Remote: "salesAccount.id", Column: "sales_account_id", Kind: Text, DetailOnly: true},
			{Remote: "purchaseAccount.id", Column: "purchase_account_id", Kind: Text, DetailOnly: true},
			{Remote: "viewGroupIds", Column: "view_group_ids", Kind: JSON, DetailOnly: true},
		},
	}
}

func inventoryModels() *Collection {
	return &Collection{
		Name:        "inventory_models",
		Table:       "inventory_models",
		Description: "Rentable and saleable inventory models",
		Source:      SourcePaged,
		Path:        "/inventory-model/search",
		Params:      map[string]string{"searchText": ""},
		DetailPath:  "/inventory-model",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "code", Column: "code", Kind: Text},
			{Remote: "shortName", Column: "short_name", Kind: Text, DetailOnly: true},
			{Remote: "barcode", Column: "barcode", Kind: Text, DetailOnly: true},
			{Remote: "manufacturer", Column: "manufacturer", Kind: Text, DetailOnly: true},
			{Remote: "deleted", Column: "deleted", Kind: Bool, DetailOnly: true},
			{Remote: "trackedBySerialUnit", Column: "tracked_by_serial_unit", Kind: Bool, DetailOnly: true},
			{Remote: "container", Column: "container", Kind: Bool, DetailOnly: true},
			{Remote: "discountable", Column: "discountable", Kind: Bool, DetailOnly: true},
			{Remote: "replacementCost", Column: "replacement_cost", Kind: Decimal, DetailOnly: true},
			{Remote: "purchaseCost", Column: "purchase_cost", Kind: Decimal, DetailOnly: true},
			{Remote: "salvageValue", Column: "salvage_value", Kind: Decimal, DetailOnly: true},
			{Remote: "weight", Column: "weight", Kind: Real, DetailOnly: true},
			{Remote: "prepTime", Column: "prep_time", Kind: Integer, DetailOnly: true},
			{Remote: "referenceData.group.id", Column: "group_id", Kind: Text, DetailOnly: true},
			{Remote: "referenceData.group.name", Column: "group_name", Kind: Text, DetailOnly: true},
			{Remote: "referenceData.averageCost", Column: "average_cost", Kind: Decimal, DetailOnly: true},
			{Remote: "createdDate", Column: "flex_created_date", Kind: Timestamp, DetailOnly: true},
			{Remote: "lastEditDate", Column: "flex_last_edit_date", Kind: Timestamp, DetailOnly: true},
		},
	}
}

func serialUnits() *Collection {
	return &Collection{
		Name:        "serial_units",
		Table:       "serial_units",
		Description: "Individually tracked units of each inventory model",
		Source:      SourcePerParent,
		Path:        "/serial-unit/node-list",
		Parent:      "inventory_models",
		ParentParam: "modelId",
		InjectField: "inventoryModelId",
		DetailPath:  "/serial-unit",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "barcode", Column: "barcode", Kind: Text},
			{Remote: "inventoryModelId", Column: "inventory_model_id", Kind: Text},
			{Remote: "serial", Column: "serial", Kind: Text, DetailOnly: true},
			{Remote: "stencil", Column: "stencil", Kind: Text, DetailOnly: true},
			{Remote: "currentLocation.id", Column: "current_location_id", Kind: Text, DetailOnly: true},
			{Remote: "currentLocation.name", Column: "current_location", Kind: Text, DetailOnly: true},
			{Remote: "homeBaseLocation.id", Column: "homebase_location_id", Kind: Text, DetailOnly: true},
			{Remote: "deleted", Column: "is_deleted", Kind: Bool, DetailOnly: true},
			{Remote: "outOfCommission", Column: "out_of_commission", Kind: Bool, DetailOnly: true},
			{Remote: "presumedMissing", Column: "presumed_missing", Kind: Bool, DetailOnly: true},
			{Remote: "returnDate", Column: "return_date", Kind: Timestamp, DetailOnly: true},
		},
	}
}

func elements() *Collection {
	return &Collection{
		Name:        "elements",
		Table:       "elements",
		Description: "Quotes, orders and other documents",
		Source:      SourcePaged,
		Path:        "/element/search",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "documentNumber", Column: "document_number", Kind: Text},
			{Remote: "definitionName", Column: "definition_name", Kind: Text},
			{Remote: "parentName", Column: "parent_name", Kind: Text},
		},
	}
}

func businessLocations() *Collection {
	return &Collection{
		Name:         "business_locations",
		Table:        "business_locations",
		Description:  "Warehouses and offices referenced by contacts",
		Source:       SourceReferenced,
		Parent:       "contacts",
		ParentColumn: "homebase_location_id",
		DetailPath:   "/business-location",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text, DetailOnly: true},
			{Remote: "locationCode", Column: "location_code", Kind: Text, DetailOnly: true},
			{Remote: "onsite", Column: "onsite", Kind: Bool, DetailOnly: true},
			{Remote: "currencyName", Column: "currency_name", Kind: Text, DetailOnly: true},
			{Remote: "timeZone", Column: "time_zone", Kind: Text, DetailOnly: true},
			{Remote: "locationType.name", Column: "location_type_name", Kind: Text, DetailOnly: true},
		},
	}
}

func pricingModels() *Collection {
	return &Collection{
		Name:         "pricing_models",
		Table:        "pricing_models",
		Description:  "Pricing models referenced by contacts",
		Source:       SourceReferenced,
		Parent:       "contacts",
		ParentColumn: "default_pricing_model_id",
		DetailPath:   "/pricing-model",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text, DetailOnly: true},
			{Remote: "code", Column: "code", Kind: Text, DetailOnly: true},
			{Remote: "deleted", Column: "deleted", Kind: Bool, DetailOnly: true},
			{Remote: "unitOfMeasureIdentity.id", Column: "unit_of_measure_id", Kind: Text, DetailOnly: true},
			{Remote: "unitOfMeasureIdentity.name", Column: "unit_of_measure_name", Kind: Text, DetailOnly: true},
			{Remote: "priceCalculationMethod", Column: "price_calculation_method", Kind: Text, DetailOnly: true},
			{Remote: "priceMultiplier", Column: "price_multiplier", Kind: Decimal, DetailOnly: true},
			{Remote: "costMultiplier", Column: "cost_multiplier", Kind: Decimal, DetailOnly: true},
			{Remote: "resourceTypeIdentities", Column: "resource_type_ids", Kind: JSON, DetailOnly: true},
		},
	}
}

func standardDiscounts() *Collection {
	return &Collection{
		Name:         "standard_discounts",
		Table:        "standard_discounts",
		Description:  "Discount schemes referenced by contacts",
		Source:       SourceReferenced,
		Parent:       "contacts",
		ParentColumn: "standard_discount_id",
		DetailPath:   "/standard-discount",
		Fields: []Field{
			{Remote: "discountName", Column: "name", Kind: Text, DetailOnly: true},
			{Remote: "rules", Column: "rules", Kind: JSON, DetailOnly: true},
		},
	}
}

func unitsOfMeasure() *Collection {
	return &Collection{
		Name:         "units_of_measure",
		Table:        "units_of_measure",
		Description:  "Units referenced by pricing models",
		Source:       SourceReferenced,
		Parent:       "pricing_models",
		ParentColumn: "unit_of_measure_id",
		DetailPath:   "/unit-of-measure",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text, DetailOnly: true},
			{Remote: "namePlural", Column: "name_plural", Kind: Text, DetailOnly: true},
			{Remote: "abbreviation", Column: "abbreviation", Kind: Text, DetailOnly: true},
			{Remote: "unitOfTime", Column: "unit_of_time", Kind: Text, DetailOnly: true},
			{Remote: "timeUnit", Column: "time_unit", Kind: Bool, DetailOnly: true},
			{Remote: "countsPerUnit", Column: "counts_per_unit", Kind: Decimal, DetailOnly: true},
			{Remote: "deleted", Column: "deleted", Kind: Bool, DetailOnly: true},
		},
	}
}

func resourceTypes() *Collection {
	return &Collection{
		Name:        "resource_types",
		Table:       "resource_types",
		Description: "Resource type reference data",
		Source:      SourceUnpaged,
		Path:        "/resource-type",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "code", Column: "code", Kind: Text},
		},
	}
}

func paymentTerms() *Collection {
	return &Collection{
		Name:        "payment_terms",
		Table:       "payment_terms",
		Description: "Payment term reference data",
		Source:      SourceUnpaged,
		Path:        "/payment-term",
		Fields: []Field{
			{Remote: "name", Column: "name", Kind: Text},
			{Remote: "code", Column: "code", Kind: Text},
		},
	}
}
