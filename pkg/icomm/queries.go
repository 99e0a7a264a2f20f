package icomm

const loginQuery = `query login($passcode: String) {
  login(passcode: $passcode) {
    user {
      tokens {
        accessToken
        idToken
        refreshToken
      }
    }
  }
}`

const devicesQuery = `query devices($forceUpdate: Boolean, $junctionIds: [String]) {
  devices(forceUpdate: $forceUpdate, junctionIds: $junctionIds) {
    brand
    model
    deviceType
    dsn
    junctionId
    name
    serial
    install {
      location
    }
    data {
      __typename
      ... on NextGenHeatPump {
        temperatureSetpoint
        temperatureSetpointPending
        temperatureSetpointMaximum
        modes {
          mode
          controls
        }
        isOnline
        firmwareVersion
        hotWaterStatus
        mode
        modePending
      }
      ... on RE3Connected {
        temperatureSetpoint
        temperatureSetpointPending
        temperatureSetpointMaximum
        modes {
          mode
          controls
        }
        isOnline
        firmwareVersion
        hotWaterStatus
        mode
        modePending
      }
    }
  }
}`

const updateModeMutation = `mutation updateMode($junctionId: String!, $mode: ModeInput!) {
  updateMode(junctionId: $junctionId, mode: $mode)
}`

const updateSetpointMutation = `mutation updateSetpoint($junctionId: String!, $value: Int!) {
  updateSetpoint(junctionId: $junctionId, value: $value)
}`
