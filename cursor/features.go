// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package cursor

// Feature is an optional driver capability a caller can query.
type Feature int

const (
	FeatureTransactions Feature = iota
	FeatureQuerySize
	FeatureBLOB
	FeatureUnicode
	FeaturePreparedQueries
	FeatureNamedPlaceholders
	FeaturePositionalPlaceholders
	FeatureLastInsertID
	FeatureBatchOperations
	FeatureSimpleLocking
	FeatureLowPrecisionNumbers
	FeatureEventNotifications
	FeatureFinishQuery
	FeatureMultipleResultSets
	FeatureCancelQuery
)

var featureNames = [...]string{
	"Transactions",
	"QuerySize",
	"BLOB",
	"Unicode",
	"PreparedQueries",
	"NamedPlaceholders",
	"PositionalPlaceholders",
	"LastInsertId",
	"BatchOperations",
	"SimpleLocking",
	"LowPrecisionNumbers",
	"EventNotifications",
	"FinishQuery",
	"MultipleResultSets",
	"CancelQuery",
}

func (f Feature) String() string {
	if f < 0 || int(f) >= len(featureNames) {
		return "Unknown"
	}
	return featureNames[f]
}

var supported = map[Feature]bool{
	FeatureTransactions:           true,
	FeatureBLOB:                   true,
	FeatureUnicode:                true,
	FeaturePreparedQueries:        true,
	FeatureNamedPlaceholders:      true,
	FeaturePositionalPlaceholders: true,
	FeatureSimpleLocking:          true,
	FeatureFinishQuery:            true,
}
