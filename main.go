/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"log"

	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/liquidity"
	"github.com/CubeConsumerServicesPvtLtd/tikkatokenerc20/sale"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func main() {
	liquidityContract := new(liquidity.SmartContract)
	liquidityContract.Name = "TokenLiquidity"

	saleContract := new(sale.SmartContract)
	saleContract.Name = "TokenSale"

	chaincode, err := contractapi.NewChaincode(liquidityContract, saleContract)
	if err != nil {
		log.Panicf("Error creating token liquidity chaincode: %v", err)
	}

	if err := chaincode.Start(); err != nil {
		log.Panicf("Error starting token liquidity chaincode: %v", err)
	}
}
